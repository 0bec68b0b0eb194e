package request

// Payload is the fully resolved request handed to the transport.
type Payload struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	Body        *string           `json:"body"`
	BodyType    BodyType          `json:"body_type"`
	TextSubtype TextSubtype       `json:"text_subtype"`
	FormSubtype FormSubtype       `json:"form_subtype"`
	BinaryData  *string           `json:"binary_data"`
	Timeout     int64             `json:"timeout"`
}
