package domain

import "time"

// RoundStatus is the round lifecycle phase. Status strictly advances:
// pending → betting → running → settled.
type RoundStatus string

const (
	RoundPending RoundStatus = "pending"
	RoundBetting RoundStatus = "betting"
	RoundRunning RoundStatus = "running"
	RoundSettled RoundStatus = "settled"
)

// CanAdvance reports whether a transition from s to next is legal.
func (s RoundStatus) CanAdvance(next RoundStatus) bool {
	order := map[RoundStatus]int{
		RoundPending: 0,
		RoundBetting: 1,
		RoundRunning: 2,
		RoundSettled: 3,
	}
	a, okA := order[s]
	b, okB := order[next]
	return okA && okB && b == a+1
}

// Round is one crash round. CommitHash is published before betting opens;
// ServerSeed and CrashPointPPM stay empty until settlement.
type Round struct {
	ID            string      `json:"id"`
	CommitHash    string      `json:"commit_hash"`
	ServerSeed    string      `json:"server_seed,omitempty"`
	ClientEntropy string      `json:"client_entropy,omitempty"`
	CrashPointPPM int64       `json:"crash_point_ppm,omitempty"`
	Status        RoundStatus `json:"status"`
	StartedAt     time.Time   `json:"started_at"`
	SettledAt     *time.Time  `json:"settled_at,omitempty"`
}
