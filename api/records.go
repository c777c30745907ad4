package api

// Dialog is one utterance recorded in a group's dialog log.
type Dialog struct {
	ID        string  `avro:"id" json:"id"`
	Day       int     `avro:"day" json:"day"`
	T         float64 `avro:"t" json:"t"`
	Type      int     `avro:"type" json:"type"`
	Speaker   string  `avro:"speaker" json:"speaker"`
	Content   string  `avro:"content" json:"content"`
	CreatedAt int64   `avro:"created_at" json:"created_at"`
}

// Survey is one answered survey recorded in a group's survey log.
type Survey struct {
	ID        string  `avro:"id" json:"id"`
	Day       int     `avro:"day" json:"day"`
	T         float64 `avro:"t" json:"t"`
	SurveyID  string  `avro:"survey_id" json:"survey_id"`
	Result    string  `avro:"result" json:"result"`
	CreatedAt int64   `avro:"created_at" json:"created_at"`
}
