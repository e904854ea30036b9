// Command ratevector-gen prints deterministic conformance vectors for
// the rate announcement formats: a canonical payload (JSON, BoC hex,
// digest, CID) and a two-node signed chain. Every input is a fixed
// constant, so the output is byte-identical across runs and suitable
// for pinning in tests.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/cloudflare/circl/sign/ed25519"

	"xdao.co/ratewire/address"
	"xdao.co/ratewire/asset"
	"xdao.co/ratewire/keys"
	"xdao.co/ratewire/model"
	"xdao.co/ratewire/ratewire"
)

func mustSigner(seedByte byte) *keys.Signer {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	s, err := keys.NewSignerFromSeed(seed)
	if err != nil {
		panic(err)
	}
	return s
}

func mustAllocation(a asset.Asset, amount int64) ratewire.Allocation {
	al, err := ratewire.NewAllocation(a, big.NewInt(amount))
	if err != nil {
		panic(err)
	}
	return al
}

func mustPayload(expiration uint32, allocations ...ratewire.Allocation) *ratewire.RatePayload {
	p, err := ratewire.NewRatePayload(expiration, allocations)
	if err != nil {
		panic(err)
	}
	return p
}

func main() {
	master, err := address.Parse("0:1111111111111111111111111111111111111111111111111111111111111111")
	if err != nil {
		fatalf("parse master: %v", err)
	}

	payload := mustPayload(1700000600,
		mustAllocation(asset.NewNative(), 750),
		mustAllocation(asset.NewToken(master), 200),
		mustAllocation(asset.NewExtraCurrency(7), 50),
	)

	payloadJSON, err := json.MarshalIndent(model.PayloadFromCore(payload), "", "  ")
	if err != nil {
		fatalf("marshal payload: %v", err)
	}
	doc, err := ratewire.NewPayloadDocument(payload)
	if err != nil {
		fatalf("encode payload: %v", err)
	}
	digest, err := payload.Digest()
	if err != nil {
		fatalf("payload digest: %v", err)
	}

	fmt.Printf("Payload-JSON:\n%s\n", payloadJSON)
	fmt.Printf("Payload-BoC=%s\n", hex.EncodeToString(doc.Bytes))
	fmt.Printf("Payload-Digest=%s\n", hex.EncodeToString(digest))
	fmt.Printf("Payload-CID=%s\n", doc.CID)

	signer := mustSigner(0xA1)
	chain, err := ratewire.BuildChain(context.Background(), []*ratewire.RatePayload{
		payload,
		mustPayload(1700000300, mustAllocation(asset.NewNative(), 1000)),
	}, signer)
	if err != nil {
		fatalf("build chain: %v", err)
	}
	chainDoc, err := ratewire.NewChainDocument(chain)
	if err != nil {
		fatalf("encode chain: %v", err)
	}

	fmt.Printf("Publisher-Key=%s\n", signer.PublisherKey())
	fmt.Printf("Chain-BoC=%s\n", hex.EncodeToString(chainDoc.Bytes))
	fmt.Printf("Chain-CID=%s\n", chainDoc.CID)
	index := 0
	for node := chain; node != nil; node = node.Next() {
		fmt.Printf("Chain-Signature-%d=%s\n", index, hex.EncodeToString(node.Signature()))
		index++
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
