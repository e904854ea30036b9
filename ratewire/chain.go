package ratewire

import (
	"context"
	"fmt"

	"xdao.co/ratewire/cell"
)

// SignedRateChain is a linked sequence of signed rate announcements. Each
// node carries a detached signature over its own payload digest and an
// optional link to the next node, so a verifier can check any prefix
// without decoding the whole history.
type SignedRateChain struct {
	signature []byte
	payload   *RatePayload
	next      *SignedRateChain
}

// BuildChain signs every payload with the provided signer and links the
// results in input order: the returned node holds payloads[0], its next
// holds payloads[1], and so on. At least one payload is required.
func BuildChain(ctx context.Context, payloads []*RatePayload, signer Signer) (*SignedRateChain, error) {
	if len(payloads) == 0 {
		return nil, newError(KindChain, RuleEmptyChain, "a chain needs at least one payload")
	}
	var next *SignedRateChain
	for i := len(payloads) - 1; i >= 0; i-- {
		p := payloads[i]
		if p == nil {
			return nil, newError(KindValidation, RuleNilPayload, fmt.Sprintf("payload %d is nil", i))
		}
		sig, err := p.Sign(ctx, signer)
		if err != nil {
			return nil, err
		}
		if len(sig) != SignatureSize {
			return nil, newError(KindCrypto, RuleSignatureSize,
				fmt.Sprintf("signer returned %d signature bytes, want %d", len(sig), SignatureSize))
		}
		next = &SignedRateChain{
			signature: append([]byte(nil), sig...),
			payload:   p,
			next:      next,
		}
	}
	return next, nil
}

// Signature returns a copy of this node's signature bytes.
func (c *SignedRateChain) Signature() []byte {
	return append([]byte(nil), c.signature...)
}

// Payload returns this node's payload.
func (c *SignedRateChain) Payload() *RatePayload { return c.payload }

// Next returns the following node, or nil at the end of the chain.
func (c *SignedRateChain) Next() *SignedRateChain { return c.next }

// Len counts the nodes from this one to the end of the chain.
func (c *SignedRateChain) Len() int {
	n := 0
	for node := c; node != nil; node = node.next {
		n++
	}
	return n
}

// Cell assembles this node's cell: the signature inline, the payload as
// the first reference, and the next node as a second reference when
// present.
func (c *SignedRateChain) Cell() (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := b.StoreBytes(c.signature); err != nil {
		return nil, encodeError("chain signature", err)
	}
	pc, err := c.payload.Cell()
	if err != nil {
		return nil, err
	}
	if err := b.StoreRef(pc); err != nil {
		return nil, encodeError("chain payload", err)
	}
	if c.next != nil {
		nc, err := c.next.Cell()
		if err != nil {
			return nil, err
		}
		if err := b.StoreRef(nc); err != nil {
			return nil, encodeError("chain link", err)
		}
	}
	return b.Build(), nil
}

// Encode serializes the chain from this node onward as canonical
// bag-of-cells bytes.
func (c *SignedRateChain) Encode() ([]byte, error) {
	root, err := c.Cell()
	if err != nil {
		return nil, err
	}
	return cell.ToBOC(root), nil
}

// DecodeChain parses bag-of-cells bytes produced by Encode back into a
// chain. Every payload along the chain is re-validated; signatures are
// carried as opaque bytes and checked only by verifiers.
func DecodeChain(data []byte) (*SignedRateChain, error) {
	root, err := cell.FromBOC(data)
	if err != nil {
		return nil, wrapError(KindParse, RuleMalformed, fmt.Sprintf("chain: %s", err), err)
	}

	type rawNode struct {
		signature []byte
		payload   *RatePayload
	}
	var nodes []rawNode
	for cur := root; cur != nil; {
		s := cur.Slice()
		sig, err := s.LoadBytes(SignatureSize)
		if err != nil {
			return nil, wrapError(KindParse, RuleMalformed,
				fmt.Sprintf("chain node %d signature: %s", len(nodes), err), err)
		}
		pc, err := s.LoadRef()
		if err != nil {
			return nil, wrapError(KindParse, RuleMalformed,
				fmt.Sprintf("chain node %d payload: %s", len(nodes), err), err)
		}
		p, err := payloadFromCell(pc)
		if err != nil {
			return nil, err
		}
		var next *cell.Cell
		switch s.RefsLeft() {
		case 0:
		case 1:
			next, err = s.LoadRef()
			if err != nil {
				return nil, wrapError(KindParse, RuleMalformed,
					fmt.Sprintf("chain node %d link: %s", len(nodes), err), err)
			}
		default:
			return nil, newError(KindParse, RuleMalformed,
				fmt.Sprintf("chain node %d carries %d references past its payload", len(nodes), s.RefsLeft()))
		}
		if s.BitsLeft() != 0 {
			return nil, newError(KindParse, RuleMalformed,
				fmt.Sprintf("chain node %d carries %d trailing bits", len(nodes), s.BitsLeft()))
		}
		nodes = append(nodes, rawNode{signature: sig, payload: p})
		cur = next
	}

	var chain *SignedRateChain
	for i := len(nodes) - 1; i >= 0; i-- {
		chain = &SignedRateChain{
			signature: nodes[i].signature,
			payload:   nodes[i].payload,
			next:      chain,
		}
	}
	return chain, nil
}
