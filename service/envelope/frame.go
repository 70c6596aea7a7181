package envelope

// Frame is one raw notification as delivered by the push transport: an
// optional transport-level event label plus the UTF-8 JSON body. Transports
// that deliver only generic messages leave Label empty; the parser then reads
// the event type from the body itself.
type Frame struct {
	Label string `json:"label,omitempty"`
	Data  []byte `json:"data"`
}

// NewFrame builds a frame from a transport label and body text.
func NewFrame(label string, data string) Frame {
	return Frame{Label: label, Data: []byte(data)}
}
