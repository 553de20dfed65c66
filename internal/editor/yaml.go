package editor

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/s3studio/baseline-manager/internal/domain"
	"github.com/s3studio/baseline-manager/pkg/log"
)

// Conf file layout read by the checker. Keys not modelled by the editor are
// carried in the inline maps and round-trip through raw_conf.
type confFile struct {
	Option   optionDoc         `yaml:"option"`
	Profile  map[string]string `yaml:"profile"`
	Listor   []listorDoc       `yaml:"listor"`
	Baseline []baselineDoc     `yaml:"baseline"`
}

type optionDoc struct {
	OutputFormat   domain.OutputFormat `yaml:"output_format"`
	OutputFilename string              `yaml:"output_filename"`
	OutputMetadata []string            `yaml:"output_metadata"`
	OutputRiskOnly bool                `yaml:"output_risk_only"`

	// Rest holds checker options the editor does not model. They are not
	// stored; import reports them.
	Rest map[string]any `yaml:",inline"`
}

type listorDoc struct {
	ID        int              `yaml:"id"`
	CloudType domain.CloudType `yaml:"cloud_type"`
	RsType    string           `yaml:"rs_type,omitempty"`
	Rest      map[string]any   `yaml:",inline"`
}

type checkerDoc struct {
	CloudType domain.CloudType `yaml:"cloud_type"`
	Listor    []int            `yaml:"listor"`
	Rest      map[string]any   `yaml:",inline"`
}

type baselineDoc struct {
	Tag      []string          `yaml:"tag"`
	Metadata map[string]string `yaml:"metadata"`
	Checker  []checkerDoc      `yaml:"checker"`
	Rest     map[string]any    `yaml:",inline"`
}

var (
	listorKeys   = []string{"id", "cloud_type", "rs_type"}
	baselineKeys = []string{"id", "tag", "metadata", "checker"}
	checkerKeys  = []string{"cloud_type", "listor"}
)

// ExportYAML renders the configuration as a checker conf file. Structured
// fields override the same keys in raw_conf. Unless exportAll is set, only
// listors referenced by some baseline are written.
func (s *Service) ExportYAML() ([]byte, error) {
	conf := s.conf.State()
	exportAll := s.ui.State().ExportAll

	out := confFile{
		Option: optionDoc{
			OutputFormat:   conf.Option.OutputFormat,
			OutputFilename: conf.Option.OutputFilename,
			OutputMetadata: nonNil(conf.Option.OutputMetadata),
			OutputRiskOnly: conf.Option.OutputRiskOnly,
		},
		Profile:  make(map[string]string, len(conf.Profile)),
		Listor:   []listorDoc{},
		Baseline: []baselineDoc{},
	}
	for p, v := range conf.Profile {
		out.Profile[string(p)] = v
	}

	for _, l := range conf.Listor {
		if !exportAll && !referenced(conf, l.ID) {
			continue
		}
		rest, err := parseRaw(l.RawConf)
		if err != nil {
			return nil, fmt.Errorf("listor %d raw_conf: %w", l.ID, err)
		}
		dropKeys(rest, listorKeys)
		out.Listor = append(out.Listor, listorDoc{ID: l.ID, CloudType: l.CloudType, RsType: l.RsType, Rest: rest})
	}

	for _, b := range conf.Baseline {
		doc, err := exportBaseline(b)
		if err != nil {
			return nil, fmt.Errorf("baseline %d raw_conf: %w", b.ID, err)
		}
		out.Baseline = append(out.Baseline, doc)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	s.logger.Debug("configuration exported",
		log.Int("listors", len(out.Listor)),
		log.Int("baselines", len(out.Baseline)),
		log.Bool("export_all", exportAll),
	)
	return buf.Bytes(), nil
}

func exportBaseline(b domain.Baseline) (baselineDoc, error) {
	rest, err := parseRaw(b.RawConf)
	if err != nil {
		return baselineDoc{}, err
	}
	rawCheckers, err := rawCheckerList(rest["checker"])
	if err != nil {
		return baselineDoc{}, err
	}
	dropKeys(rest, baselineKeys)

	doc := baselineDoc{
		Tag:      nonNil(b.Tag),
		Metadata: b.Metadata,
		Checker:  make([]checkerDoc, 0, len(b.Checker)),
		Rest:     rest,
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}
	for i, chk := range b.Checker {
		var extra map[string]any
		if i < len(rawCheckers) {
			extra = rawCheckers[i]
			dropKeys(extra, checkerKeys)
		}
		doc.Checker = append(doc.Checker, checkerDoc{
			CloudType: chk.CloudType,
			Listor:    nonNil(chk.Listor),
			Rest:      extra,
		})
	}
	return doc, nil
}

// ImportYAML replaces the configuration with the content of a checker conf
// file as one mutation. Output options and profiles are kept as they are
// while their lock is set. Baselines get ids in file order.
func (s *Service) ImportYAML(ctx context.Context, data []byte) error {
	def := domain.DefaultConf().Option
	in := confFile{Option: optionDoc{
		OutputFormat:   def.OutputFormat,
		OutputFilename: def.OutputFilename,
		OutputMetadata: def.OutputMetadata,
		OutputRiskOnly: def.OutputRiskOnly,
	}}
	if err := yaml.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parse conf file: %w", err)
	}

	next, err := fromConfFile(in)
	if err != nil {
		return err
	}
	if dropped := slices.Sorted(maps.Keys(in.Option.Rest)); len(dropped) > 0 {
		s.logger.Warn("conf file options not kept by the editor", log.Strings("dropped", dropped))
	}

	var ui domain.UIState
	err = s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		ui = s.ui.State()
		if ui.OptionLocked {
			next.Option = c.Option
		}
		if ui.ProfileLocked {
			next.Profile = c.Profile
		}
		if err := domain.Validate(next); err != nil {
			return err
		}
		if refs := next.DanglingListorRefs(); len(refs) > 0 {
			return fmt.Errorf("%w: %s", domain.ErrUnknownListor, refs[0])
		}
		*c = next
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("configuration imported",
		log.Int("listors", len(next.Listor)),
		log.Int("baselines", len(next.Baseline)),
		log.Bool("option_locked", ui.OptionLocked),
		log.Bool("profile_locked", ui.ProfileLocked),
	)
	return nil
}

func fromConfFile(in confFile) (domain.ConfigurationState, error) {
	c := domain.DefaultConf()

	f, err := domain.ParseOutputFormat(string(in.Option.OutputFormat))
	if err != nil {
		return c, err
	}
	c.Option.OutputFormat = f
	c.Option.OutputFilename = in.Option.OutputFilename
	c.Option.OutputMetadata = nonNil(in.Option.OutputMetadata)
	c.Option.OutputRiskOnly = in.Option.OutputRiskOnly

	for k, v := range in.Profile {
		p, err := domain.ParseProvider(k)
		if err != nil {
			return c, err
		}
		c.Profile[p] = v
	}

	for _, l := range in.Listor {
		if _, err := domain.ParseCloudType(string(l.CloudType)); err != nil {
			return c, fmt.Errorf("listor %d: %w", l.ID, err)
		}
		raw, err := renderRaw(l.Rest)
		if err != nil {
			return c, err
		}
		c.Listor = append(c.Listor, domain.Listor{ID: l.ID, CloudType: l.CloudType, RsType: l.RsType, RawConf: raw})
	}

	for i, b := range in.Baseline {
		base := domain.Baseline{
			ID:       i + 1,
			Tag:      nonNil(b.Tag),
			Metadata: b.Metadata,
			Checker:  make([]domain.Checker, 0, len(b.Checker)),
		}
		if base.Metadata == nil {
			base.Metadata = map[string]string{}
		}

		rest := b.Rest
		if rest == nil {
			rest = map[string]any{}
		}
		delete(rest, "id")

		var extras []any
		hasExtra := false
		for _, chk := range b.Checker {
			if _, err := domain.ParseCloudType(string(chk.CloudType)); err != nil {
				return c, fmt.Errorf("baseline %d: %w", base.ID, err)
			}
			base.Checker = append(base.Checker, domain.Checker{CloudType: chk.CloudType, Listor: nonNil(chk.Listor)})
			extra := chk.Rest
			if extra == nil {
				extra = map[string]any{}
			}
			hasExtra = hasExtra || len(extra) > 0
			extras = append(extras, extra)
		}
		if hasExtra {
			rest["checker"] = extras
		}

		raw, err := renderRaw(rest)
		if err != nil {
			return c, err
		}
		base.RawConf = raw
		c.Baseline = append(c.Baseline, base)
	}
	return c, nil
}

func referenced(c domain.ConfigurationState, listorID int) bool {
	for _, b := range c.Baseline {
		if b.References(listorID) {
			return true
		}
	}
	return false
}

// parseRaw decodes a raw_conf fragment. An empty fragment is an empty map.
func parseRaw(raw string) (map[string]any, error) {
	m := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return m, nil
	}
	if err := yaml.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func renderRaw(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func rawCheckerList(v any) ([]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("checker must be a list, got %T", v)
	}
	out := make([]map[string]any, len(items))
	for i, item := range items {
		switch m := item.(type) {
		case map[string]any:
			out[i] = m
		case nil:
			out[i] = nil
		default:
			return nil, fmt.Errorf("checker %d must be a mapping, got %T", i, item)
		}
	}
	return out, nil
}

func dropKeys(m map[string]any, keys []string) {
	for _, k := range keys {
		delete(m, k)
	}
}

func nonNil[E any](s []E) []E {
	if s == nil {
		return []E{}
	}
	return s
}
