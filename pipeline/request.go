package pipeline

// Pipeline runs one request and sends the JSON response on the returned
// channel. The channel is closed without a value when the request fails.
type Pipeline func(request Request) <-chan string

type Request struct {
	Tid     string `json:"tid"`
	Profile string `json:"profile"`
	Text    string `json:"text"`
}
