package mediastream

import (
	"encoding/xml"
	"fmt"
)

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// TwiML returns the voice webhook document that connects a call to the
// bidirectional media stream at streamURL. Parameters are delivered back in
// start.customParameters, in the given order.
func TwiML(streamURL string, params ...[2]string) ([]byte, error) {
	doc := twimlResponse{Connect: twimlConnect{Stream: twimlStream{URL: streamURL}}}
	for _, p := range params {
		doc.Connect.Stream.Parameters = append(doc.Connect.Stream.Parameters, twimlParameter{Name: p[0], Value: p[1]})
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mediastream: twiml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
