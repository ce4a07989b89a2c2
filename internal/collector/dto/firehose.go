package dto

// FirehoseEvent is a single frame from a jetstream-style social firehose.
type FirehoseEvent struct {
	DID    string          `json:"did"`
	TimeUS int64           `json:"time_us"`
	Kind   string          `json:"kind"`
	Commit *FirehoseCommit `json:"commit,omitempty"`
}

type FirehoseCommit struct {
	Operation  string          `json:"operation"`
	Collection string          `json:"collection"`
	RKey       string          `json:"rkey"`
	Record     *FirehoseRecord `json:"record,omitempty"`
}

type FirehoseRecord struct {
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}
