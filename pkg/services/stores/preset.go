package stores

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liut/parley/pkg/models/aigc"
)

// LoadPreset reads a yaml preset, an empty name gives an empty preset
func LoadPreset(name string) (doc *aigc.Preset, err error) {
	doc = new(aigc.Preset)
	if len(name) > 0 {
		logger().Infow("load preset", "file", name)
		yf, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer yf.Close()
		err = yaml.NewDecoder(yf).Decode(doc)
		if err != nil {
			logger().Infow("decode preset fail", "err", err)
			return nil, err
		}
	}

	return
}
