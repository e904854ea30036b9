package model

import (
	"errors"

	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/compliance"
	"xdao.co/ratewire/receipt"
	"xdao.co/ratewire/resolver"
	"xdao.co/ratewire/storage"
)

type ResolveOptions struct {
	CAS         storage.CAS
	CASAdapters []storage.CAS

	ReceiptOptions receipt.RenderOptions
}

// ResolveResult runs the resolver, fetching any CID-referenced inputs from
// the CAS, and condenses the outcome into a ResolutionResult.
func ResolveResult(req ResolverRequest, opts ResolveOptions) (*ResolutionResult, error) {
	out, receiptBytes, _, receiptCID, err := resolveAndRender(req, opts)
	if err != nil {
		return nil, err
	}

	res := fromResolution(out.Resolution)
	return &ResolutionResult{
		Receipt:    receiptBytes,
		ReceiptCID: receiptCID,
		State:      res.State,
		Payload:    res.Payload,
		Verdicts:   append([]RuleVerdict(nil), res.Verdicts...),
		Exclusions: append([]Exclusion(nil), res.Exclusions...),
	}, nil
}

// ResolveAndRenderReceipt runs the resolver (hydrating by CID via CAS when needed) and renders
// canonical receipt bytes bound to the inputs.
func ResolveAndRenderReceipt(req ResolverRequest, opts ResolveOptions) (*ResolverResponse, error) {
	out, receiptBytes, receiptCIDStr, _, err := resolveAndRender(req, opts)
	if err != nil {
		return nil, err
	}

	resp := &ResolverResponse{
		Resolution:      fromResolution(out.Resolution),
		ChainCID:        out.ChainCID,
		PublisherSetCID: out.PublisherSetCID,
		Receipt: ReceiptDocument{
			Bytes: receiptBytes,
			CID:   receiptCIDStr,
		},
	}
	return resp, nil
}

func resolveAndRender(req ResolverRequest, opts ResolveOptions) (*resolver.ResolveOutputCAS, []byte, string, cid.Cid, error) {
	chainRef, err := decodeBlobRef(req.Chain, "chain")
	if err != nil {
		return nil, nil, "", cid.Undef, err
	}

	setRef, err := decodeBlobRef(req.Publishers, "publishers")
	if err != nil {
		return nil, nil, "", cid.Undef, err
	}

	mode, err := decodeCompliance(req.Compliance)
	if err != nil {
		return nil, nil, "", cid.Undef, err
	}

	out, err := resolver.ResolveWithCAS(resolver.ResolveRequestCAS{
		Chain:       chainRef,
		Policy:      setRef,
		At:          req.At,
		Compliance:  mode,
		CAS:         opts.CAS,
		CASAdapters: opts.CASAdapters,
	})
	if err != nil {
		return nil, nil, "", cid.Undef, coerceErr(err)
	}

	// The receipt always records the evaluation instant and compliance mode
	// that produced it, whatever the caller pre-filled.
	rOpts := opts.ReceiptOptions
	rOpts.VerifiedAt = req.At
	rOpts.Mode = mode

	receiptBytes, receiptCIDStr, err := receipt.RenderWithCID(out.Resolution, out.ChainCID, out.PublisherSetCID, rOpts)
	if err != nil {
		return nil, nil, "", cid.Undef, coerceErr(err)
	}

	receiptCID, err := cid.Decode(receiptCIDStr)
	if err != nil {
		return nil, nil, "", cid.Undef, NewError(ErrInvalidCID, "invalid receipt cid")
	}

	return out, receiptBytes, receiptCIDStr, receiptCID, nil
}

func decodeBlobRef(b BlobRef, field string) (resolver.BlobRef, error) {
	switch {
	case len(b.Bytes) > 0 && b.CID != "":
		return resolver.BlobRef{}, Errorf(ErrInvalidRequest, "%s ref has both bytes and cid", field)
	case len(b.Bytes) > 0:
		return resolver.BlobRef{Bytes: b.Bytes}, nil
	case b.CID != "":
		id, err := cid.Decode(b.CID)
		if err != nil {
			return resolver.BlobRef{}, Errorf(ErrInvalidCID, "invalid %s cid", field)
		}
		return resolver.BlobRef{CID: id}, nil
	default:
		return resolver.BlobRef{}, Errorf(ErrInvalidRequest, "%s ref missing bytes/cid", field)
	}
}

func decodeCompliance(m ComplianceMode) (compliance.ComplianceMode, error) {
	switch m {
	case CompliancePermissive:
		return compliance.Permissive, nil
	case ComplianceStrict:
		return compliance.Strict, nil
	case "":
		return 0, NewError(ErrInvalidRequest, "compliance mode is required")
	default:
		return 0, Errorf(ErrInvalidRequest, "unknown compliance mode %q", m)
	}
}

// coerceErr turns an internal error into the CodedError the boundary
// promises, passing through errors that already carry a code.
func coerceErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	code := ErrInternal
	switch {
	case errors.Is(err, resolver.ErrMissingCAS):
		code = ErrMissingCAS
	case errors.Is(err, storage.ErrNotFound):
		code = ErrNotFound
	case errors.Is(err, storage.ErrCIDMismatch):
		code = ErrCIDMismatch
	case errors.Is(err, storage.ErrInvalidCID):
		code = ErrInvalidCID
	}
	return NewError(code, err.Error())
}

func fromResolution(r *resolver.Resolution) Resolution {
	out := Resolution{
		State:      string(r.State),
		Confidence: string(r.Confidence),
		Index:      r.Index,
		Exclusions: make([]Exclusion, 0, len(r.Exclusions)),
		Verdicts:   make([]RuleVerdict, 0, len(r.Verdicts)),
	}
	if r.Payload != nil {
		p := PayloadFromCore(r.Payload)
		out.Payload = &p
	}
	for _, e := range r.Exclusions {
		out.Exclusions = append(out.Exclusions, Exclusion{Index: e.Index, Reason: e.Reason})
	}
	for _, v := range r.Verdicts {
		out.Verdicts = append(out.Verdicts, RuleVerdict{
			Role:          v.Role,
			Quorum:        v.Quorum,
			Observed:      v.Observed,
			PublisherKeys: append([]string(nil), v.PublisherKeys...),
			Satisfied:     v.Satisfied,
			Reason:        v.Reason,
		})
	}
	return out
}
