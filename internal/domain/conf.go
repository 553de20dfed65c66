package domain

import (
	"fmt"
	"slices"
)

// ConfStoreName and ConfStorageKey identify the configuration store and its slot.
const (
	ConfStoreName  = "conf"
	ConfStorageKey = "conf-store"
)

// OutputFormat is the format of a checker report.
type OutputFormat string

const (
	OutputFormatCSV  OutputFormat = "csv"
	OutputFormatJSON OutputFormat = "json"
)

// OutputFormats lists the accepted output formats.
var OutputFormats = []OutputFormat{OutputFormatCSV, OutputFormatJSON}

// ParseOutputFormat returns the OutputFormat named by s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(s)
	if !slices.Contains(OutputFormats, f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownOutputFormat, s)
	}
	return f, nil
}

// Provider is a key of the profile mapping.
type Provider string

const (
	ProviderAliyun  Provider = "aliyun"
	ProviderAzure   Provider = "azure"
	ProviderK8s     Provider = "k8s"
	ProviderTencent Provider = "tencent"
)

// Providers lists the accepted profile keys in sorted order.
var Providers = []Provider{ProviderAliyun, ProviderAzure, ProviderK8s, ProviderTencent}

// ParseProvider returns the Provider named by s.
func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	if !slices.Contains(Providers, p) {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return p, nil
}

// CloudType is the connector a listor or checker talks to.
type CloudType string

const (
	CloudAliyun       CloudType = "aliyun"
	CloudAliyunOSS    CloudType = "aliyun_oss"
	CloudAzure        CloudType = "azure"
	CloudK8s          CloudType = "k8s"
	CloudTencentCloud CloudType = "tencent_cloud"
	CloudTencentCOS   CloudType = "tencent_cos"
)

// CloudTypes lists the accepted cloud types in sorted order.
var CloudTypes = []CloudType{
	CloudAliyun, CloudAliyunOSS, CloudAzure, CloudK8s, CloudTencentCloud, CloudTencentCOS,
}

// ParseCloudType returns the CloudType named by s.
func ParseCloudType(s string) (CloudType, error) {
	c := CloudType(s)
	if !slices.Contains(CloudTypes, c) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCloudType, s)
	}
	return c, nil
}

// Option controls how checker results are written.
type Option struct {
	OutputFormat   OutputFormat `json:"output_format" validate:"oneof=csv json"`
	OutputFilename string       `json:"output_filename"`
	OutputMetadata []string     `json:"output_metadata"`
	OutputRiskOnly bool         `json:"output_risk_only"`
}

// Profile maps a provider to its credential or config string.
type Profile map[Provider]string

// Listor is a resource enumeration definition bound to a cloud type.
type Listor struct {
	ID        int       `json:"id" validate:"gte=0"`
	CloudType CloudType `json:"cloud_type" validate:"oneof=aliyun aliyun_oss azure k8s tencent_cloud tencent_cos"`
	RsType    string    `json:"rs_type"`
	RawConf   string    `json:"raw_conf"`
}

// Checker associates a cloud type with the listors whose resources it checks.
type Checker struct {
	CloudType CloudType `json:"cloud_type" validate:"oneof=aliyun aliyun_oss azure k8s tencent_cloud tencent_cos"`
	Listor    []int     `json:"listor" validate:"unique"`
}

// Baseline is a named set of checks.
type Baseline struct {
	ID       int               `json:"id" validate:"gte=0"`
	Tag      []string          `json:"tag" validate:"unique"`
	Metadata map[string]string `json:"metadata"`
	Checker  []Checker         `json:"checker" validate:"dive"`
	RawConf  string            `json:"raw_conf"`
}

// ConfigurationState is the persisted content of the configuration store.
type ConfigurationState struct {
	Option   Option     `json:"option"`
	Profile  Profile    `json:"profile" validate:"dive,keys,oneof=aliyun azure k8s tencent,endkeys"`
	Listor   []Listor   `json:"listor" validate:"unique=ID,dive"`
	Baseline []Baseline `json:"baseline" validate:"dive"`
}

// emptyConf is the template every configuration store starts from.
// It must only ever be read through Clone.
var emptyConf = ConfigurationState{
	Option: Option{
		OutputFormat:   OutputFormatCSV,
		OutputFilename: "test",
		OutputMetadata: []string{},
		OutputRiskOnly: true,
	},
	Profile:  Profile{},
	Listor:   []Listor{},
	Baseline: []Baseline{},
}

// DefaultConf returns a fresh copy of the default configuration state.
func DefaultConf() ConfigurationState {
	return emptyConf.Clone()
}

// Clone returns a deep copy of c.
func (c ConfigurationState) Clone() ConfigurationState {
	out := ConfigurationState{
		Option:  c.Option.Clone(),
		Profile: c.Profile.Clone(),
	}
	if c.Listor != nil {
		out.Listor = make([]Listor, len(c.Listor))
		copy(out.Listor, c.Listor)
	}
	if c.Baseline != nil {
		out.Baseline = make([]Baseline, len(c.Baseline))
		for i, b := range c.Baseline {
			out.Baseline[i] = b.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of o.
func (o Option) Clone() Option {
	o.OutputMetadata = cloneSlice(o.OutputMetadata)
	return o
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of c.
func (c Checker) Clone() Checker {
	c.Listor = cloneSlice(c.Listor)
	return c
}

// Clone returns a deep copy of b.
func (b Baseline) Clone() Baseline {
	b.Tag = cloneSlice(b.Tag)
	if b.Metadata != nil {
		m := make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			m[k] = v
		}
		b.Metadata = m
	}
	if b.Checker != nil {
		checkers := make([]Checker, len(b.Checker))
		for i, c := range b.Checker {
			checkers[i] = c.Clone()
		}
		b.Checker = checkers
	}
	return b
}

// cloneSlice copies s, keeping nil and empty distinct.
func cloneSlice[E any](s []E) []E {
	if s == nil {
		return nil
	}
	out := make([]E, len(s))
	copy(out, s)
	return out
}

// ListorIndex returns the position of the listor with the given id, or -1.
func (c ConfigurationState) ListorIndex(id int) int {
	return slices.IndexFunc(c.Listor, func(l Listor) bool { return l.ID == id })
}

// BaselineIndex returns the position of the baseline with the given id, or -1.
func (c ConfigurationState) BaselineIndex(id int) int {
	return slices.IndexFunc(c.Baseline, func(b Baseline) bool { return b.ID == id })
}

// NextListorID returns one more than the largest listor id in use.
func (c ConfigurationState) NextListorID() int {
	next := 1
	for _, l := range c.Listor {
		if l.ID >= next {
			next = l.ID + 1
		}
	}
	return next
}

// NextBaselineID returns one more than the largest baseline id in use.
func (c ConfigurationState) NextBaselineID() int {
	next := 1
	for _, b := range c.Baseline {
		if b.ID >= next {
			next = b.ID + 1
		}
	}
	return next
}

// References reports whether any checker of b lists the listor id.
func (b Baseline) References(listorID int) bool {
	for _, c := range b.Checker {
		if slices.Contains(c.Listor, listorID) {
			return true
		}
	}
	return false
}
