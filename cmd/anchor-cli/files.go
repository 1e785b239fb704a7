package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"seals.dev/anchor/anchor"
	"seals.dev/anchor/bp"
)

const (
	extAnchor = ".anchor"
	extTx     = ".tx"
)

func fileKind(path string) (string, error) {
	switch ext := filepath.Ext(path); ext {
	case extAnchor, extTx:
		return ext, nil
	case "":
		return "", fmt.Errorf("the file '%s' has no extension; unable to detect the file type", path)
	default:
		return "", fmt.Errorf("unknown file type for '%s': the extension is not recognized", path)
	}
}

func readAnchor(path string, bound int) (anchor.Anchor, error) {
	b, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path.
	if err != nil {
		return anchor.Anchor{}, err
	}
	a, err := anchor.DecodeBounded(b, bound)
	if err != nil {
		return anchor.Anchor{}, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

func writeAnchor(path string, a anchor.Anchor) error {
	enc, err := a.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, enc, 0o600)
}

func readTx(path string) (*bp.Tx, error) {
	b, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path.
	if err != nil {
		return nil, err
	}
	tx, err := bp.ParseTxHex(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tx, nil
}
