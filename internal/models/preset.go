package models

import "fmt"

type Preset struct {
	Name        string
	Description string
	Apply       func(p *Profile)
}

var Presets = map[string]Preset{
	"normal": {
		Name:        "🟢 Обычный",
		Description: "Фильтр активного рынка: размах 0.3%, тело 0.15%",
		Apply: func(p *Profile) {
			p.MinRangePct = 0.003
			p.MinBodyPct = 0.0015
			p.MinEMAGapPct = 0
		},
	},
	"strict": {
		Name:        "🔴 Строгий",
		Description: "Только сильные свечи и разошедшиеся EMA",
		Apply: func(p *Profile) {
			p.MinRangePct = 0.006
			p.MinBodyPct = 0.003
			p.MinEMAGapPct = 0.002
			// строгий режим работал без HTF и наклона
			p.HTFTimeframes = nil
			p.MinSlope = 0
		},
	},
	"lite": {
		Name:        "⚪️ Без фильтров",
		Description: "Только касание EMA150/EMA200 на закрытой свече",
		Apply: func(p *Profile) {
			p.EMALengths = []int{150, 200}
			p.WarmupMargin = 2
			p.MinRangePct = 0
			p.MinBodyPct = 0
			p.MinEMAGapPct = 0
			p.MinSlope = 0
			p.HTFTimeframes = nil
		},
	},
}

// ApplyPreset накладывает пресет фильтров на профиль и запоминает его имя.
func ApplyPreset(p *Profile, name string) error {
	preset, ok := Presets[name]
	if !ok {
		return fmt.Errorf("profile %s: unknown preset %q", p.Name, name)
	}
	preset.Apply(p)
	p.Preset = name
	return nil
}
