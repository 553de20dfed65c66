// Package domaintest provides builders and rapid generators for domain state
// trees, shared by the tests of the packages that store and persist them.
package domaintest

import (
	"pgregory.net/rapid"

	"github.com/s3studio/baseline-manager/internal/domain"
)

// Conf draws valid configuration states. Checker references may dangle.
func Conf() *rapid.Generator[domain.ConfigurationState] {
	return rapid.Custom(func(t *rapid.T) domain.ConfigurationState {
		return domain.ConfigurationState{
			Option: domain.Option{
				OutputFormat:   rapid.SampledFrom(domain.OutputFormats).Draw(t, "output_format"),
				OutputFilename: rapid.StringMatching(`[a-z0-9_.-]{0,12}`).Draw(t, "output_filename"),
				OutputMetadata: rapid.SliceOfN(rapid.StringMatching(`[a-z_]{1,8}`), 0, 4).Draw(t, "output_metadata"),
				OutputRiskOnly: rapid.Bool().Draw(t, "output_risk_only"),
			},
			Profile: rapid.MapOfN(
				rapid.SampledFrom(domain.Providers),
				rapid.StringMatching(`[A-Za-z0-9$]{0,16}`),
				0, len(domain.Providers),
			).Draw(t, "profile"),
			Listor:   rapid.SliceOfNDistinct(Listor(), 0, 5, func(l domain.Listor) int { return l.ID }).Draw(t, "listor"),
			Baseline: rapid.SliceOfN(Baseline(), 0, 4).Draw(t, "baseline"),
		}
	})
}

// Listor draws a single listor.
func Listor() *rapid.Generator[domain.Listor] {
	return rapid.Custom(func(t *rapid.T) domain.Listor {
		return domain.Listor{
			ID:        rapid.IntRange(0, 50).Draw(t, "id"),
			CloudType: rapid.SampledFrom(domain.CloudTypes).Draw(t, "cloud_type"),
			RsType:    rapid.StringMatching(`[A-Za-z ]{0,12}`).Draw(t, "rs_type"),
			RawConf:   rapid.StringMatching(`[a-z_]{1,8}: [a-z0-9]{0,8}`).Draw(t, "raw_conf"),
		}
	})
}

// Baseline draws a single baseline.
func Baseline() *rapid.Generator[domain.Baseline] {
	return rapid.Custom(func(t *rapid.T) domain.Baseline {
		return domain.Baseline{
			ID:  rapid.IntRange(0, 50).Draw(t, "id"),
			Tag: rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,6}`), 0, 3, rapid.ID[string]).Draw(t, "tag"),
			Metadata: rapid.MapOfN(
				rapid.StringMatching(`[a-z_]{1,8}`),
				rapid.StringMatching(`[A-Za-z0-9 ]{0,12}`),
				0, 3,
			).Draw(t, "metadata"),
			Checker: rapid.SliceOfN(Checker(), 0, 3).Draw(t, "checker"),
			RawConf: rapid.StringMatching(`[a-z_]{1,8}: [a-z0-9]{0,8}`).Draw(t, "raw_conf"),
		}
	})
}

// Checker draws a single checker.
func Checker() *rapid.Generator[domain.Checker] {
	return rapid.Custom(func(t *rapid.T) domain.Checker {
		return domain.Checker{
			CloudType: rapid.SampledFrom(domain.CloudTypes).Draw(t, "cloud_type"),
			Listor:    rapid.SliceOfNDistinct(rapid.IntRange(0, 50), 0, 4, rapid.ID[int]).Draw(t, "listor"),
		}
	})
}

// UI draws UI preference states.
func UI() *rapid.Generator[domain.UIState] {
	return rapid.Custom(func(t *rapid.T) domain.UIState {
		return domain.UIState{
			ThemeName:                rapid.SampledFrom([]string{"dark", "light"}).Draw(t, "themeName"),
			ExportAll:                rapid.Bool().Draw(t, "exportAll"),
			OptionLocked:             rapid.Bool().Draw(t, "optionLocked"),
			ProfileLocked:            rapid.Bool().Draw(t, "profileLocked"),
			DeleteBaselineWithListor: rapid.Bool().Draw(t, "deleteBaselineWithListor"),
		}
	})
}

// SampleConf returns a small hand-written configuration with two listors and
// one baseline referencing both.
func SampleConf() domain.ConfigurationState {
	c := domain.DefaultConf()
	c.Option.OutputMetadata = []string{"id", "name"}
	c.Profile[domain.ProviderTencent] = "$ENV"
	c.Listor = []domain.Listor{
		{ID: 1, CloudType: domain.CloudTencentCloud, RsType: "CVM", RawConf: "list_cmd:\n  tencent_cloud:\n    service: cvm\n"},
		{ID: 2, CloudType: domain.CloudTencentCOS, RsType: "Bucket", RawConf: "list_cmd:\n  tencent_cos:\n    action: ListBuckets\n"},
	}
	c.Baseline = []domain.Baseline{
		{
			ID:       1,
			Tag:      []string{"storage"},
			Metadata: map[string]string{"name": "bucket is private"},
			Checker: []domain.Checker{
				{CloudType: domain.CloudTencentCloud, Listor: []int{1}},
				{CloudType: domain.CloudTencentCOS, Listor: []int{2}},
			},
			RawConf: "checker:\n  - validator:\n      validate_schema: '{}'\n",
		},
	}
	return c
}
