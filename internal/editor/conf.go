package editor

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/s3studio/baseline-manager/internal/domain"
	"github.com/s3studio/baseline-manager/pkg/log"
)

// OptionFields lists the names accepted by SetOption.
var OptionFields = []string{"output_format", "output_filename", "output_metadata", "output_risk_only"}

// The lock checks below read the UI store from inside the conf mutation, so
// they see the latest UI state before the conf commit. The two stores commit
// independently: a UI change landing between that read and the conf commit is
// not seen by the edit.

func (s *Service) checkOptionUnlocked() error {
	if s.ui.State().OptionLocked {
		return domain.ErrOptionLocked
	}
	return nil
}

func (s *Service) checkProfileUnlocked() error {
	if s.ui.State().ProfileLocked {
		return domain.ErrProfileLocked
	}
	return nil
}

// SetOption assigns one output option from its text form. output_metadata
// takes a comma separated list.
func (s *Service) SetOption(ctx context.Context, field, value string) error {
	var apply func(o *domain.Option)
	switch field {
	case "output_format":
		f, err := domain.ParseOutputFormat(value)
		if err != nil {
			return err
		}
		apply = func(o *domain.Option) { o.OutputFormat = f }
	case "output_filename":
		apply = func(o *domain.Option) { o.OutputFilename = value }
	case "output_metadata":
		items := splitList(value)
		apply = func(o *domain.Option) { o.OutputMetadata = items }
	case "output_risk_only":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", field, err)
		}
		apply = func(o *domain.Option) { o.OutputRiskOnly = b }
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}

	return s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		if err := s.checkOptionUnlocked(); err != nil {
			return err
		}
		apply(&c.Option)
		return nil
	})
}

// SetOutputFormat sets the report format.
func (s *Service) SetOutputFormat(ctx context.Context, f domain.OutputFormat) error {
	return s.SetOption(ctx, "output_format", string(f))
}

func splitList(value string) []string {
	items := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// SetProfile assigns the credential string of a provider.
func (s *Service) SetProfile(ctx context.Context, provider, value string) error {
	p, err := domain.ParseProvider(provider)
	if err != nil {
		return err
	}
	return s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		if err := s.checkProfileUnlocked(); err != nil {
			return err
		}
		if c.Profile == nil {
			c.Profile = domain.Profile{}
		}
		c.Profile[p] = value
		return nil
	})
}

// UnsetProfile removes the entry of a provider. Removing an absent entry is
// not an error.
func (s *Service) UnsetProfile(ctx context.Context, provider string) error {
	p, err := domain.ParseProvider(provider)
	if err != nil {
		return err
	}
	return s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		if err := s.checkProfileUnlocked(); err != nil {
			return err
		}
		delete(c.Profile, p)
		return nil
	})
}

// AddListor appends l under the next free id and returns the stored listor.
func (s *Service) AddListor(ctx context.Context, l domain.Listor) (domain.Listor, error) {
	if _, err := domain.ParseCloudType(string(l.CloudType)); err != nil {
		return domain.Listor{}, err
	}

	var added domain.Listor
	err := s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		l.ID = c.NextListorID()
		c.Listor = append(c.Listor, l)
		added = l
		return nil
	})
	if err != nil {
		return domain.Listor{}, err
	}
	s.logger.Debug("listor added", log.Int("id", added.ID), log.String("cloud_type", string(added.CloudType)))
	return added, nil
}

// UpdateListor replaces the listor with l.ID.
func (s *Service) UpdateListor(ctx context.Context, l domain.Listor) error {
	if _, err := domain.ParseCloudType(string(l.CloudType)); err != nil {
		return err
	}
	return s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		i := c.ListorIndex(l.ID)
		if i < 0 {
			return fmt.Errorf("%w: %d", domain.ErrListorNotFound, l.ID)
		}
		c.Listor[i] = l
		return nil
	})
}

// RemoveListor deletes the listor with id. Baselines referencing it are
// deleted when deleteBaselineWithListor is set; otherwise the id is stripped
// from their checkers. It returns the ids of deleted baselines.
func (s *Service) RemoveListor(ctx context.Context, id int) ([]int, error) {
	var removed []int
	err := s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		i := c.ListorIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: %d", domain.ErrListorNotFound, id)
		}
		cascade := s.ui.State().DeleteBaselineWithListor
		c.Listor = slices.Delete(c.Listor, i, i+1)

		kept := c.Baseline[:0]
		for _, b := range c.Baseline {
			if !b.References(id) {
				kept = append(kept, b)
				continue
			}
			if cascade {
				removed = append(removed, b.ID)
				continue
			}
			for j := range b.Checker {
				b.Checker[j].Listor = slices.DeleteFunc(b.Checker[j].Listor, func(v int) bool { return v == id })
			}
			kept = append(kept, b)
		}
		c.Baseline = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("listor removed", log.Int("id", id), log.Int("baselines_removed", len(removed)))
	return removed, nil
}

// AddBaseline appends b under the next free id and returns the stored
// baseline. Every checker listor id must exist.
func (s *Service) AddBaseline(ctx context.Context, b domain.Baseline) (domain.Baseline, error) {
	if err := checkBaseline(b); err != nil {
		return domain.Baseline{}, err
	}

	var added domain.Baseline
	err := s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		if err := c.CheckListorRefs(b); err != nil {
			return err
		}
		b.ID = c.NextBaselineID()
		normalizeBaseline(&b)
		c.Baseline = append(c.Baseline, b)
		added = b.Clone()
		return nil
	})
	if err != nil {
		return domain.Baseline{}, err
	}
	return added, nil
}

// UpdateBaseline replaces the baseline with b.ID.
func (s *Service) UpdateBaseline(ctx context.Context, b domain.Baseline) error {
	if err := checkBaseline(b); err != nil {
		return err
	}
	return s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		i := c.BaselineIndex(b.ID)
		if i < 0 {
			return fmt.Errorf("%w: %d", domain.ErrBaselineNotFound, b.ID)
		}
		if err := c.CheckListorRefs(b); err != nil {
			return err
		}
		normalizeBaseline(&b)
		c.Baseline[i] = b
		return nil
	})
}

// RemoveBaseline deletes the baseline with id.
func (s *Service) RemoveBaseline(ctx context.Context, id int) error {
	return s.updateConf(ctx, func(c *domain.ConfigurationState) error {
		i := c.BaselineIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: %d", domain.ErrBaselineNotFound, id)
		}
		c.Baseline = slices.Delete(c.Baseline, i, i+1)
		return nil
	})
}

func checkBaseline(b domain.Baseline) error {
	for _, chk := range b.Checker {
		if _, err := domain.ParseCloudType(string(chk.CloudType)); err != nil {
			return err
		}
	}
	return domain.Validate(b)
}

// normalizeBaseline replaces nil collections with empty ones so snapshots
// always carry arrays and objects.
func normalizeBaseline(b *domain.Baseline) {
	*b = b.Clone()
	if b.Tag == nil {
		b.Tag = []string{}
	}
	if b.Metadata == nil {
		b.Metadata = map[string]string{}
	}
	if b.Checker == nil {
		b.Checker = []domain.Checker{}
	}
	for i := range b.Checker {
		if b.Checker[i].Listor == nil {
			b.Checker[i].Listor = []int{}
		}
	}
}
