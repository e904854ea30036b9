package model

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"xdao.co/ratewire/address"
	"xdao.co/ratewire/asset"
	"xdao.co/ratewire/keys"
	"xdao.co/ratewire/ratewire"
)

const testMaster = "0:1111111111111111111111111111111111111111111111111111111111111111"

func codeOf(t *testing.T, err error) ErrorCode {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a coded error, got nil")
	}
	var ce *CodedError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a CodedError", err)
	}
	return ce.Code
}

func TestAssetRoundTrip(t *testing.T) {
	master, err := address.Parse(testMaster)
	if err != nil {
		t.Fatalf("parse master: %v", err)
	}
	cores := []asset.Asset{
		asset.NewNative(),
		asset.NewToken(master),
		asset.NewExtraCurrency(7),
	}
	for _, want := range cores {
		dto := AssetFromCore(want)
		got, err := AssetToCore(dto)
		if err != nil {
			t.Fatalf("AssetToCore(%+v): %v", dto, err)
		}
		if got != want {
			t.Fatalf("round trip changed asset: got %v, want %v", got, want)
		}
	}
}

func TestAssetFromCore_ExtraCurrencyZeroID(t *testing.T) {
	dto := AssetFromCore(asset.NewExtraCurrency(0))
	if dto.CurrencyID == nil || *dto.CurrencyID != 0 {
		t.Fatalf("currency id 0 must survive conversion, got %+v", dto)
	}
}

func TestAssetToCore_ShapeErrors(t *testing.T) {
	id := int32(3)
	cases := []struct {
		name string
		in   Asset
		want ErrorCode
	}{
		{"unknown kind", Asset{Kind: "jetton"}, ErrInvalidKind},
		{"empty kind", Asset{}, ErrInvalidKind},
		{"native with master", Asset{Kind: "native", Master: testMaster}, ErrInvalidKind},
		{"native with currency id", Asset{Kind: "native", CurrencyID: &id}, ErrInvalidKind},
		{"token missing master", Asset{Kind: "token"}, ErrInvalidKind},
		{"token with currency id", Asset{Kind: "token", Master: testMaster, CurrencyID: &id}, ErrInvalidKind},
		{"extra currency missing id", Asset{Kind: "extra_currency"}, ErrInvalidKind},
		{"extra currency with master", Asset{Kind: "extra_currency", Master: testMaster, CurrencyID: &id}, ErrInvalidKind},
		{"token bad master", Asset{Kind: "token", Master: "not-an-address"}, ErrInvalidAddress},
		{"token short master", Asset{Kind: "token", Master: "0:abcd"}, ErrInvalidAddress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := AssetToCore(tc.in)
			if got := codeOf(t, err); got != tc.want {
				t.Fatalf("code = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAllocationToCore_AmountErrors(t *testing.T) {
	cases := []struct {
		name   string
		amount string
	}{
		{"missing", ""},
		{"not a number", "abc"},
		{"fractional", "1.5"},
		{"hex prefix", "0x10"},
		{"negative", "-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := AllocationToCore(Allocation{Asset: Asset{Kind: "native"}, Amount: tc.amount})
			if got := codeOf(t, err); got != ErrInvalidAmount {
				t.Fatalf("code = %s, want %s", got, ErrInvalidAmount)
			}
		})
	}
}

func TestAllocationRoundTrip_BigAmount(t *testing.T) {
	const amount = "340282366920938463463374607431768211455"
	alloc, err := AllocationToCore(Allocation{Asset: Asset{Kind: "native"}, Amount: amount})
	if err != nil {
		t.Fatalf("AllocationToCore: %v", err)
	}
	if got := AllocationFromCore(alloc); got.Amount != amount {
		t.Fatalf("amount round trip = %q, want %q", got.Amount, amount)
	}
}

func TestPayloadToCore_RejectsDuplicateAssets(t *testing.T) {
	_, err := PayloadToCore(RatePayload{
		Expiration: 600,
		Allocations: []Allocation{
			{Asset: Asset{Kind: "native"}, Amount: "1"},
			{Asset: Asset{Kind: "native"}, Amount: "2"},
		},
	})
	if got := codeOf(t, err); got != ErrInvalidPayload {
		t.Fatalf("code = %s, want %s", got, ErrInvalidPayload)
	}
}

func TestPayloadRoundTrip_SortsAllocations(t *testing.T) {
	id := int32(5)
	core, err := PayloadToCore(RatePayload{
		Expiration: 600,
		Allocations: []Allocation{
			{Asset: Asset{Kind: "extra_currency", CurrencyID: &id}, Amount: "30"},
			{Asset: Asset{Kind: "native"}, Amount: "70"},
		},
	})
	if err != nil {
		t.Fatalf("PayloadToCore: %v", err)
	}
	got := PayloadFromCore(core)
	if got.Expiration != 600 || len(got.Allocations) != 2 {
		t.Fatalf("unexpected payload shape: %+v", got)
	}
	if got.Allocations[0].Asset.Kind != "native" || got.Allocations[1].Asset.Kind != "extra_currency" {
		t.Fatalf("allocations not in canonical order: %+v", got.Allocations)
	}
}

func TestChainFromCore(t *testing.T) {
	if ChainFromCore(nil) != nil {
		t.Fatal("nil chain must convert to nil")
	}

	signer, err := keys.NewSignerFromSeed(bytes.Repeat([]byte{0x3c}, 32))
	if err != nil {
		t.Fatalf("NewSignerFromSeed: %v", err)
	}
	chain, err := ratewire.BuildChain(context.Background(),
		[]*ratewire.RatePayload{corePayload(t, 600), corePayload(t, 300)}, signer)
	if err != nil {
		t.Fatalf("BuildChain: %v", err)
	}

	head := ChainFromCore(chain)
	if head == nil || head.Next == nil || head.Next.Next != nil {
		t.Fatalf("converted chain has wrong length: %+v", head)
	}
	if head.Payload.Expiration != 600 || head.Next.Payload.Expiration != 300 {
		t.Fatalf("expirations out of order: %d, %d", head.Payload.Expiration, head.Next.Payload.Expiration)
	}
	for i, node := range []*ChainNode{head, head.Next} {
		sig, err := hex.DecodeString(node.Signature)
		if err != nil || len(sig) != ratewire.SignatureSize {
			t.Fatalf("node %d signature %q is not %d hex bytes: %v", i, node.Signature, ratewire.SignatureSize, err)
		}
	}
	if head.Signature == head.Next.Signature {
		t.Fatal("distinct payloads produced identical signatures")
	}
}

func corePayload(t *testing.T, expiration uint32) *ratewire.RatePayload {
	t.Helper()
	al, err := ratewire.NewAllocation(asset.NewNative(), big.NewInt(100))
	if err != nil {
		t.Fatalf("NewAllocation: %v", err)
	}
	p, err := ratewire.NewRatePayload(expiration, []ratewire.Allocation{al})
	if err != nil {
		t.Fatalf("NewRatePayload: %v", err)
	}
	return p
}
