package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
)

func fill32(b byte) (out [32]byte) {
	for i := range out {
		out[i] = b
	}
	return out
}

var (
	c1 = commit.ContractId(fill32(1)).String()
	c2 = commit.ContractId(fill32(2)).String()
	c3 = commit.ContractId(fill32(3)).String()
	b1 = commit.BundleRef(fill32(0xb1)).String()
	b2 = commit.BundleRef(fill32(0xb2)).String()
	b3 = commit.BundleRef(fill32(0xb3)).String()
)

type env struct {
	t   *testing.T
	dir string
}

func newEnv(t *testing.T) *env {
	color.NoColor = true
	return &env{t: t, dir: t.TempDir()}
}

func (e *env) path(name string) string { return filepath.Join(e.dir, name) }

func (e *env) run(args ...string) (int, string, string) {
	e.t.Helper()
	var out, errb bytes.Buffer
	base := []string{"--datadir", e.path("data"), "--txdir", e.path("txs")}
	code := run(append(base, args...), &out, &errb)
	return code, out.String(), errb.String()
}

func (e *env) build(name string, args ...string) map[string]any {
	e.t.Helper()
	code, out, stderr := e.run(append([]string{"build", "--entropy", "1", "-o", e.path(name)}, args...)...)
	require.Equal(e.t, exitOK, code, stderr)
	var res map[string]any
	require.NoError(e.t, yaml.Unmarshal([]byte(out), &res))
	return res
}

// writeTx stores a one-input transaction paying to script next to a decoy
// output and returns its path.
func (e *env) writeTx(name string, script []byte) (string, *bp.Tx) {
	e.t.Helper()
	tx := &bp.Tx{
		Version: 2,
		Inputs:  []bp.TxIn{{PrevTxid: bp.Txid{0x09}, Sequence: 0xffffffff}},
		Outputs: []bp.TxOut{
			{Value: 5000, ScriptPubkey: bp.P2TRScript(fill32(0x77))},
			{Value: 0, ScriptPubkey: script},
		},
	}
	p := e.path(name)
	require.NoError(e.t, os.WriteFile(p, []byte(tx.Hex()+"\n"), 0o600))
	return p, tx
}

func scriptOf(t *testing.T, res map[string]any) []byte {
	t.Helper()
	s, ok := res["script"].(string)
	require.True(t, ok)
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"info", "inspect", "dump", "build", "verify", "store"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	for _, name := range []string{"config", "log-level", "datadir", "txdir", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestBuildAndVerify(t *testing.T) {
	e := newEnv(t)
	res := e.build("a.anchor", "-c", c1+":"+b1+","+b2, "-c", c2+":"+b3)
	assert.Equal(t, "opret", res["method"])
	assert.Equal(t, 2, res["contracts"])
	script := scriptOf(t, res)
	require.True(t, bp.IsOpReturn(script))

	txPath, _ := e.writeTx("w.tx", script)
	otherPath, _ := e.writeTx("other.tx", bp.OpReturnScript([32]byte{}))

	code, out, _ := e.run("verify", e.path("a.anchor"), "--tx", txPath)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "OK anchor committed by")

	code, out, _ = e.run("verify", e.path("a.anchor"), "--tx", txPath, "-c", c1, "-b", b1, "-b", b2)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "bundle_root:")

	for _, c := range []struct {
		name string
		args []string
		code string
	}{
		{"partial_bundles", []string{"--tx", txPath, "-c", c1, "-b", b1}, "ANCHOR_ERR_BUNDLE_MISMATCH"},
		{"unknown_contract", []string{"--tx", txPath, "-c", c3, "-b", b3}, "ANCHOR_ERR_UNKNOWN_CONTRACT"},
		{"other_tx", []string{"--tx", otherPath, "-c", c2, "-b", b3}, "ANCHOR_ERR_TRANSACTION_MISMATCH"},
		{"other_tx_binding", []string{"--tx", otherPath}, "ANCHOR_ERR_TRANSACTION_MISMATCH"},
	} {
		t.Run(c.name, func(t *testing.T) {
			code, out, _ := e.run(append([]string{"verify", e.path("a.anchor")}, c.args...)...)
			assert.Equal(t, exitFailure, code)
			assert.Contains(t, out, "FAIL "+c.code)
		})
	}

	code, _, _ = e.run("verify", e.path("a.anchor"))
	assert.Equal(t, exitCommandError, code)
	code, _, _ = e.run("verify", e.path("missing.anchor"), "--tx", txPath)
	assert.Equal(t, exitCommandError, code)
}

func TestBuildTapret(t *testing.T) {
	e := newEnv(t)
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	key := hex.EncodeToString(schnorr.SerializePubKey(priv.PubKey()))

	res := e.build("t.anchor", "-m", "tapret", "--internal-key", key, "--nonce", "3", "-c", c1+":"+b1)
	assert.Equal(t, "tapret", res["method"])
	script := scriptOf(t, res)
	require.True(t, bp.IsP2TR(script))

	// Tapret commits through the first P2TR output.
	tx := &bp.Tx{
		Version: 2,
		Inputs:  []bp.TxIn{{PrevTxid: bp.Txid{0x09}, Sequence: 0xffffffff}},
		Outputs: []bp.TxOut{{Value: 5000, ScriptPubkey: script}},
	}
	txPath := e.path("t.tx")
	require.NoError(t, os.WriteFile(txPath, []byte(tx.Hex()), 0o600))

	code, _, _ := e.run("verify", e.path("t.anchor"), "--tx", txPath, "-c", c1, "-b", b1)
	assert.Equal(t, exitOK, code)

	cfg := e.path("opret-only.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("methods: [opret]\n"), 0o600))
	code, out, _ := e.run("--config", cfg, "verify", e.path("t.anchor"), "--tx", txPath, "-c", c1, "-b", b1)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "ANCHOR_ERR_UNSUPPORTED_SCHEME")

	code, _, _ = e.run("build", "-m", "tapret", "-c", c1+":"+b1, "-o", e.path("x.anchor"))
	assert.Equal(t, exitCommandError, code)

	zero := commit.Digest{}.String()
	e.build("p.anchor", "-m", "tapret", "--internal-key", key, "--partner-node", zero, "-c", c1+":"+b1)
	code, out, _ = e.run("inspect", e.path("p.anchor"))
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "kind: left-node")
	assert.Contains(t, out, "node: "+zero)

	code, _, _ = e.run("build", "-m", "tapret", "--internal-key", key, "--partner-node", zero,
		"--partner-leaf", "51", "-c", c1+":"+b1, "-o", e.path("x.anchor"))
	assert.Equal(t, exitCommandError, code)

	// A partner leaf carrying a commitment prefix is refused.
	prefixed := strings.Repeat("50", 29) + "6a"
	code, _, stderr := e.run("build", "-m", "tapret", "--internal-key", key,
		"--partner-leaf", prefixed, "-c", c1+":"+b1, "-o", e.path("x.anchor"))
	assert.Equal(t, exitCommandError, code)
	assert.Contains(t, stderr, "commitment leaf")
	assert.NoFileExists(t, e.path("x.anchor"))
}

func TestInfoInspectDump(t *testing.T) {
	e := newEnv(t)
	e.build("a.anchor", "-c", c1+":"+b1+","+b2, "-c", c2+":"+b3)

	code, _, stderr := e.run("info", e.path("a.anchor"))
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "File type: Anchor")
	assert.Contains(t, stderr, "Contracts: 2")

	txPath, tx := e.writeTx("w.tx", bp.OpReturnScript([32]byte{1}))
	code, _, stderr = e.run("info", txPath)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "Txid: "+tx.Txid().String())

	code, _, stderr = e.run("info", e.path("a.bin"))
	assert.Equal(t, exitCommandError, code)
	assert.Contains(t, stderr, "extension is not recognized")
	code, _, stderr = e.run("info", e.path("noext"))
	assert.Equal(t, exitCommandError, code)
	assert.Contains(t, stderr, "has no extension")

	code, out, _ := e.run("inspect", e.path("a.anchor"))
	require.Equal(t, exitOK, code)
	var view map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Contains(t, out, "method: opret")
	assert.Contains(t, out, "contract: "+c1)
	assert.Len(t, view["contracts"], 2)

	code, out, _ = e.run("inspect", txPath)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "kind: op_return")

	code, _, _ = e.run("dump", e.path("a.anchor"))
	require.Equal(t, exitOK, code)
	assert.FileExists(t, e.path("dump/anchor.yaml"))
	assert.FileExists(t, e.path("dump/contracts/"+c1+".yaml"))
	assert.FileExists(t, e.path("dump/contracts/"+c2+".yaml"))

	code, _, stderr = e.run("dump", e.path("a.anchor"))
	assert.Equal(t, exitCommandError, code)
	assert.Contains(t, stderr, "--force")
	code, _, _ = e.run("dump", "--force", e.path("a.anchor"))
	assert.Equal(t, exitOK, code)
	assert.FileExists(t, e.path("dump/anchor.yaml"))

	code, _, _ = e.run("dump", txPath)
	assert.Equal(t, exitCommandError, code)
}

func TestDumpForceOnlyReplacesDumps(t *testing.T) {
	e := newEnv(t)
	e.build("a.anchor", "-c", c1+":"+b1, "-c", c2+":"+b3)
	e.build("b.anchor", "-c", c3+":"+b2)

	// An unrelated directory is never cleared.
	other := e.path("home")
	require.NoError(t, os.MkdirAll(filepath.Join(other, "notes"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(other, "keep.txt"), []byte("keep"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(other, "notes", "n.txt"), []byte("n"), 0o600))
	code, _, stderr := e.run("dump", "--force", e.path("a.anchor"), other)
	assert.Equal(t, exitCommandError, code)
	assert.Contains(t, stderr, "not part of a dump")
	assert.FileExists(t, filepath.Join(other, "keep.txt"))
	assert.FileExists(t, filepath.Join(other, "notes", "n.txt"))
	assert.NoFileExists(t, filepath.Join(other, "anchor.yaml"))

	// A prior dump is replaced, stale contract files included.
	dst := e.path("out")
	code, _, _ = e.run("dump", e.path("a.anchor"), dst)
	require.Equal(t, exitOK, code)
	code, _, _ = e.run("dump", "--force", e.path("b.anchor"), dst)
	require.Equal(t, exitOK, code)
	assert.FileExists(t, filepath.Join(dst, "contracts", c3+".yaml"))
	assert.NoFileExists(t, filepath.Join(dst, "contracts", c1+".yaml"))

	// A dump with a foreign file in it is left alone.
	stray := filepath.Join(dst, "contracts", "stray.txt")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o600))
	code, _, _ = e.run("dump", "--force", e.path("a.anchor"), dst)
	assert.Equal(t, exitCommandError, code)
	assert.FileExists(t, stray)
	assert.FileExists(t, filepath.Join(dst, "anchor.yaml"))
	assert.FileExists(t, filepath.Join(dst, "contracts", c3+".yaml"))

	// An empty directory takes a dump under --force.
	empty := e.path("empty")
	require.NoError(t, os.MkdirAll(empty, 0o750))
	code, _, _ = e.run("dump", "--force", e.path("a.anchor"), empty)
	assert.Equal(t, exitOK, code)
	assert.FileExists(t, filepath.Join(empty, "anchor.yaml"))
}

func TestStore(t *testing.T) {
	e := newEnv(t)
	res := e.build("a.anchor", "-c", c1+":"+b1, "-c", c2+":"+b3)
	txPath, tx := e.writeTx("w.tx", scriptOf(t, res))
	otherPath, _ := e.writeTx("other.tx", bp.OpReturnScript([32]byte{}))

	code, out, _ := e.run("store", "put", e.path("a.anchor"), "--tx", otherPath)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "ANCHOR_ERR_TRANSACTION_MISMATCH")

	code, out, stderr := e.run("store", "put", e.path("a.anchor"), "--tx", txPath)
	require.Equal(t, exitOK, code, stderr)
	id := strings.TrimSpace(out)
	assert.Equal(t, res["id"], id)

	code, out, _ = e.run("store", "list")
	require.Equal(t, exitOK, code)
	assert.Equal(t, id+" "+tx.Txid().String()+" 2\n", out)

	code, out, _ = e.run("store", "list", "-c", c2)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, id)
	code, out, _ = e.run("store", "list", "-c", c3)
	require.Equal(t, exitOK, code)
	assert.Empty(t, out)

	code, out, _ = e.run("store", "get", id)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "txid: "+tx.Txid().String())

	code, _, _ = e.run("store", "get", id, "-o", e.path("back.anchor"))
	require.Equal(t, exitOK, code)
	orig, err := os.ReadFile(e.path("a.anchor"))
	require.NoError(t, err)
	back, err := os.ReadFile(e.path("back.anchor"))
	require.NoError(t, err)
	assert.Equal(t, orig, back)

	// put archived the transaction, so it now resolves by txid.
	code, _, _ = e.run("verify", e.path("a.anchor"), "--txid", tx.Txid().String(), "-c", c1, "-b", b1)
	assert.Equal(t, exitOK, code)

	code, _, _ = e.run("store", "get", hex.EncodeToString(make([]byte, 32)))
	assert.Equal(t, exitCommandError, code)
}
