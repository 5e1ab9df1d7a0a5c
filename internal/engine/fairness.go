package engine

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// Provable fairness: before betting opens the server publishes
// keccak256(server_seed); after settlement it reveals the seed together with
// the client entropy (the keccak of all accepted bet IDs in acceptance
// order). Anyone can recompute the crash point from the pair, and the
// operator cannot know the outcome before bets are final because the entropy
// is fixed only when betting closes.

// MinCrashPPM and MaxCrashPPM clamp the derived crash point.
const (
	MinCrashPPM int64 = 1_000_000     // 1.00x
	MaxCrashPPM int64 = 1_000_000_000 // 1000.00x
)

// GenerateServerSeed returns a 256-bit CSPRNG seed, hex encoded.
func GenerateServerSeed() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate server seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CommitHash returns keccak256 of the seed bytes, hex encoded.
func CommitHash(serverSeed string) (string, error) {
	seed, err := hex.DecodeString(serverSeed)
	if err != nil {
		return "", fmt.Errorf("decode server seed: %w", err)
	}
	return hex.EncodeToString(crypto.Keccak256(seed)), nil
}

// ClientEntropy hashes the accepted bet IDs in acceptance order. An empty
// round hashes the empty string, which is still a fixed public commitment.
func ClientEntropy(betIDs []string) string {
	var buf []byte
	for _, id := range betIDs {
		buf = append(buf, []byte(id)...)
	}
	return hex.EncodeToString(crypto.Keccak256(buf))
}

// two52 is 2^52, the uniformity window taken from the derivation hash.
var two52 = new(big.Int).Lsh(big.NewInt(1), 52)

// CrashPointPPM derives the crash multiplier from the seed/entropy pair:
//
//	h    = keccak256(seed || entropy)
//	r    = (h mod 2^52) / 2^52
//	raw  = floor(100 × (1 − houseEdge) / max(r, 1e-12)) / 100
//	out  = clamp(raw, 1.00, 1000.00)
//
// computed in hundredths so the floor semantics are exact, then scaled to
// ppm. The instant-crash probability equals houseEdge.
func CrashPointPPM(serverSeed, clientEntropy string, houseEdge float64) (int64, error) {
	seed, err := hex.DecodeString(serverSeed)
	if err != nil {
		return 0, fmt.Errorf("decode server seed: %w", err)
	}
	entropy, err := hex.DecodeString(clientEntropy)
	if err != nil {
		return 0, fmt.Errorf("decode client entropy: %w", err)
	}

	h := crypto.Keccak256(seed, entropy)
	hmod := new(big.Int).Mod(new(big.Int).SetBytes(h), two52)

	r := float64(hmod.Uint64()) / float64(1<<52)
	if r < 1e-12 {
		r = 1e-12
	}

	hundredths := int64(math.Floor(100 * (1 - houseEdge) / r))
	ppm := hundredths * 10_000
	if ppm < MinCrashPPM {
		ppm = MinCrashPPM
	}
	if ppm > MaxCrashPPM {
		ppm = MaxCrashPPM
	}
	return ppm, nil
}

// ProofStep is one line of the verification transcript served by the proof
// endpoint.
type ProofStep struct {
	Op    string `json:"op"`
	Value string `json:"value"`
}

// Proof is the independently verifiable fairness payload for a settled round.
type Proof struct {
	RoundID       string      `json:"round_id"`
	ServerSeed    string      `json:"server_seed"`
	CommitHash    string      `json:"commit_hash"`
	ClientEntropy string      `json:"client_entropy"`
	KeccakOfSeed  string      `json:"keccak_of_seed"`
	CrashPPM      int64       `json:"crash_ppm"`
	Steps         []ProofStep `json:"steps"`
}

// BuildProof recomputes the full derivation transcript for a settled round.
func BuildProof(roundID, serverSeed, clientEntropy string, houseEdge float64) (*Proof, error) {
	commit, err := CommitHash(serverSeed)
	if err != nil {
		return nil, err
	}

	seed, _ := hex.DecodeString(serverSeed)
	entropy, err := hex.DecodeString(clientEntropy)
	if err != nil {
		return nil, fmt.Errorf("decode client entropy: %w", err)
	}
	h := crypto.Keccak256(seed, entropy)
	hmod := new(big.Int).Mod(new(big.Int).SetBytes(h), two52)

	ppm, err := CrashPointPPM(serverSeed, clientEntropy, houseEdge)
	if err != nil {
		return nil, err
	}

	return &Proof{
		RoundID:       roundID,
		ServerSeed:    serverSeed,
		CommitHash:    commit,
		ClientEntropy: clientEntropy,
		KeccakOfSeed:  commit,
		CrashPPM:      ppm,
		Steps: []ProofStep{
			{Op: "keccak256(seed)", Value: commit},
			{Op: "keccak256(seed||entropy)", Value: hex.EncodeToString(h)},
			{Op: "h mod 2^52", Value: hmod.String()},
			{Op: "crash_ppm", Value: fmt.Sprintf("%d", ppm)},
		},
	}, nil
}
