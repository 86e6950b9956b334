package modelio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/example/lvcsr-decode/internal/amodel"
	"gopkg.in/yaml.v3"
)

// LoadHMMList reads a logical-to-physical name mapping file
// (read_binhmmlist.c's text-format counterpart): one entry per line, either
// "logicalname physicalname" or just "logicalname" when the two are the
// same. Blank lines and lines starting with '#' are skipped. Every
// logicalname is registered in idx as a LogicalHMM pointing at the already
// loaded physical HMM named physicalname.
func LoadHMMList(r io.Reader, idx *amodel.Index) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		logical := fields[0]
		physicalName := logical
		if len(fields) >= 2 {
			physicalName = fields[1]
		}
		phys, ok := idx.Physical(physicalName)
		if !ok {
			return fmt.Errorf("modelio: hmmlist line %d: physical hmm %q not defined", lineNo, physicalName)
		}
		if err := idx.AddLogical(&amodel.LogicalHMM{Name: logical, Kind: amodel.LogicalPhysical, Physical: phys}); err != nil {
			return fmt.Errorf("modelio: hmmlist line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

// ModelManifest is the YAML sidecar that accompanies a binary/text AM or LM
// bundle: metadata the wire formats themselves do not carry (spec §3's
// "DOMAIN STACK" note: the HTK text format is hand-rolled line scanning,
// but the decoder's own auxiliary manifests are YAML, matching the
// teacher's internal/model.Manifest pattern).
type ModelManifest struct {
	Name          string           `yaml:"name"`
	StreamWidths  []int            `yaml:"stream_widths"`
	CodebookIDs   []int32          `yaml:"codebook_ids,omitempty"`
	CategoryNames map[int32]string `yaml:"category_names,omitempty"`
	SampleRateHz  int              `yaml:"sample_rate_hz"`
	FrameShiftMs  float64          `yaml:"frame_shift_ms"`
}

// LoadManifest decodes a ModelManifest from its YAML sidecar file.
func LoadManifest(r io.Reader) (ModelManifest, error) {
	var m ModelManifest
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return ModelManifest{}, fmt.Errorf("modelio: decode manifest: %w", err)
	}
	return m, nil
}

// SaveManifest encodes a ModelManifest as YAML.
func SaveManifest(w io.Writer, m ModelManifest) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("modelio: encode manifest: %w", err)
	}
	return nil
}
