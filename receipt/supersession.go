package receipt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SupersedesReceiptCID returns the CID referenced by META: Supersedes-Receipt-CID.
func SupersedesReceiptCID(receiptBytes []byte) (string, bool, error) {
	return fieldValue(receiptBytes, "META", "Supersedes-Receipt-CID")
}

// ValidateSupersession enforces minimal receipt supersession semantics.
//
// A receipt B supersedes receipt A when:
// - B's META includes Supersedes-Receipt-CID equal to CID(A)
// - both receipts name the same Resolver-ID
// - B and A bind the same Publisher-Set-CID
// - B's Verified-At is not earlier than A's
//
// Chain-CID is free to differ: superseding a receipt is how a resolver
// publishes a verification of a newer chain under the same trust anchor.
func ValidateSupersession(newReceipt, oldReceipt []byte) error {
	oldCID, err := CID(oldReceipt)
	if err != nil {
		return fmt.Errorf("old receipt: %w", err)
	}
	newCID, err := CID(newReceipt)
	if err != nil {
		return fmt.Errorf("new receipt: %w", err)
	}
	if newCID == oldCID {
		return errors.New("supersession invalid: new receipt bytes identical to old")
	}

	sup, ok, err := SupersedesReceiptCID(newReceipt)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("supersession invalid: new receipt does not declare Supersedes-Receipt-CID")
	}
	if sup != oldCID {
		return fmt.Errorf("supersession invalid: Supersedes-Receipt-CID=%q does not match old CID=%q", sup, oldCID)
	}

	if err := matchField(newReceipt, oldReceipt, "META", "Resolver-ID", "resolver-id"); err != nil {
		return err
	}
	if err := matchField(newReceipt, oldReceipt, "INPUTS", "Publisher-Set-CID", "publisher-set"); err != nil {
		return err
	}

	oldAt, err := verifiedAt(oldReceipt)
	if err != nil {
		return err
	}
	newAt, err := verifiedAt(newReceipt)
	if err != nil {
		return err
	}
	if newAt < oldAt {
		return fmt.Errorf("supersession invalid: Verified-At went backwards old=%d new=%d", oldAt, newAt)
	}

	return nil
}

// matchField requires both receipts to carry the field and to agree on it.
func matchField(newReceipt, oldReceipt []byte, section, key, what string) error {
	oldV, err := mustField(oldReceipt, section, key)
	if err != nil {
		return err
	}
	newV, err := mustField(newReceipt, section, key)
	if err != nil {
		return err
	}
	if oldV != newV {
		return fmt.Errorf("supersession invalid: %s mismatch old=%q new=%q", what, oldV, newV)
	}
	return nil
}

func verifiedAt(receiptBytes []byte) (uint32, error) {
	v, err := mustField(receiptBytes, "META", "Verified-At")
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid Verified-At %q", v)
	}
	return uint32(n), nil
}

// sectionBody returns the lines between the section header and the blank
// line that terminates it.
func sectionBody(receiptBytes []byte, section string) ([]string, error) {
	lines := strings.Split(string(receiptBytes), "\n")
	for i, l := range lines {
		if l != section {
			continue
		}
		body := lines[i+1:]
		for j, b := range body {
			if b == "" {
				return body[:j], nil
			}
		}
		return body, nil
	}
	return nil, fmt.Errorf("missing section %q", section)
}

// fieldValue extracts the single "key: value" line for key within section.
// A duplicated or empty field is an error; an absent field is ok=false.
func fieldValue(receiptBytes []byte, section, key string) (string, bool, error) {
	body, err := sectionBody(receiptBytes, section)
	if err != nil {
		return "", false, err
	}
	prefix := key + ": "
	var value string
	var n int
	for _, l := range body {
		if strings.HasPrefix(l, prefix) {
			value = strings.TrimPrefix(l, prefix)
			n++
		}
	}
	switch {
	case n == 0:
		return "", false, nil
	case n > 1:
		return "", false, fmt.Errorf("multiple %s: %s", section, key)
	case value == "":
		return "", false, fmt.Errorf("empty %s: %s", section, key)
	}
	return value, true, nil
}

func mustField(receiptBytes []byte, section, key string) (string, error) {
	v, ok, err := fieldValue(receiptBytes, section, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("missing %s: %s", section, key)
	}
	return v, nil
}
