package server

import (
	"encoding/xml"

	"github.com/example/lvcsr-decode/internal/result"
	"github.com/example/lvcsr-decode/internal/status"
)

// recogOut is the XML envelope broadcast to module clients for one
// utterance, wrapping the same content spec §6 describes for plain-text
// output (sentenceN/wseqN/phseqN/cmscoreN/scoreN).
type recogOut struct {
	XMLName xml.Name   `xml:"RECOGOUT"`
	UttID   string     `xml:"uttid,attr"`
	Status  string     `xml:"status,attr"`
	Shypo   []shypoXML `xml:"SHYPO,omitempty"`
}

type shypoXML struct {
	Rank    int        `xml:"rank,attr"`
	Score   float32    `xml:"score,attr"`
	AMScore float32    `xml:"AMavg,attr"`
	LMScore float32    `xml:"LMavg,attr"`
	WHypo   []whypoXML `xml:"WHYPO"`
}

type whypoXML struct {
	Word       string  `xml:"WORD,attr"`
	Phone      string  `xml:"PHONE,attr,omitempty"`
	Confidence float64 `xml:"CM,attr"`
}

// marshalResult renders one utterance's recognizer output as the XML block
// a module client receives, appending a trailing newline so successive
// results are newline-delimited on the wire the way Julius's own module
// output is.
func marshalResult(uttID string, code status.Code, sentences []result.Sentence) ([]byte, error) {
	out := recogOut{
		UttID:  uttID,
		Status: code.String(),
	}

	for rank, s := range sentences {
		sh := shypoXML{
			Rank:    rank + 1,
			Score:   s.TotalScore,
			AMScore: s.AMScore,
			LMScore: s.LMScore,
		}
		for i, w := range s.Words {
			wh := whypoXML{Word: w, Confidence: confidenceAt(s.Confidence, i)}
			if i < len(s.Phones) {
				wh.Phone = s.Phones[i]
			}
			sh.WHypo = append(sh.WHypo, wh)
		}
		out.Shypo = append(out.Shypo, sh)
	}

	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(body, '\n'), nil
}

func confidenceAt(conf []float64, i int) float64 {
	if i < len(conf) {
		return conf[i]
	}
	return 0
}
