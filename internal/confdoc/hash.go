package confdoc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Marshal serializes doc as canonical JSON: object keys are sorted.
func Marshal(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	return json.Marshal(Clone(doc))
}

// MarshalIndent is Marshal with two-space indentation.
func MarshalIndent(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	return json.MarshalIndent(Clone(doc), "", "  ")
}

// Parse decodes raw JSON text into a Document. Empty input yields an empty
// document.
func Parse(raw []byte) (Document, error) {
	if len(raw) == 0 {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("confdoc: parse: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Hash returns the hex SHA-256 of the canonical serialization of doc.
func Hash(doc Document) string {
	raw, err := Marshal(doc)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
