package domain

// Instruction is one instruction of a fetched transaction, kept in the
// compact JSON-encoding form the RPC returns: a program table index and
// base58-encoded data.
type Instruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Data           string `json:"data"`
}

// RawTransaction is the immutable record fetched once per signature and
// cached forever. Blockchain finality means a cached entry never changes.
type RawTransaction struct {
	Signature string `json:"signature"`

	// Sender is the fee payer, accountKeys[0].
	Sender string `json:"sender"`

	// BlockTime is the server-observed timestamp in unix seconds.
	// Nil when the ledger did not report one.
	BlockTime *int64 `json:"blockTime"`

	AccountKeys  []string      `json:"accountKeys"`
	Instructions []Instruction `json:"instructions"`
}
