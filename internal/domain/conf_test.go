package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func templateJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(emptyConf)
	require.NoError(t, err)
	return string(b)
}

func TestDefaultConf_Values(t *testing.T) {
	c := DefaultConf()

	assert.Equal(t, OutputFormatCSV, c.Option.OutputFormat)
	assert.Equal(t, "test", c.Option.OutputFilename)
	assert.True(t, c.Option.OutputRiskOnly)
	assert.NotNil(t, c.Option.OutputMetadata, "metadata should encode as [] not null")
	assert.Empty(t, c.Option.OutputMetadata)
	assert.NotNil(t, c.Profile)
	assert.NotNil(t, c.Listor)
	assert.NotNil(t, c.Baseline)
}

func TestDefaultConf_JSONShape(t *testing.T) {
	b, err := json.Marshal(DefaultConf())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"option": {"output_format": "csv", "output_filename": "test", "output_metadata": [], "output_risk_only": true},
		"profile": {},
		"listor": [],
		"baseline": []
	}`, string(b))
}

func TestDefaultConf_MutationsDoNotReachTemplate(t *testing.T) {
	before := templateJSON(t)

	a := DefaultConf()
	b := DefaultConf()

	a.Option.OutputFormat = OutputFormatJSON
	a.Option.OutputMetadata = append(a.Option.OutputMetadata, "id")
	a.Profile[ProviderAzure] = "secret"
	a.Listor = append(a.Listor, Listor{ID: 1, CloudType: CloudAzure})
	a.Baseline = append(a.Baseline, Baseline{ID: 1})

	assert.Equal(t, before, templateJSON(t), "template must be unchanged")
	assert.Equal(t, OutputFormatCSV, b.Option.OutputFormat)
	assert.Empty(t, b.Profile)
	assert.Empty(t, b.Listor)
}

func TestConfigurationState_CloneIsDeep(t *testing.T) {
	orig := ConfigurationState{
		Option:  Option{OutputFormat: OutputFormatJSON, OutputMetadata: []string{"a", "b"}},
		Profile: Profile{ProviderK8s: "kubeconfig"},
		Listor:  []Listor{{ID: 1, CloudType: CloudK8s}},
		Baseline: []Baseline{{
			ID:       1,
			Tag:      []string{"t"},
			Metadata: map[string]string{"k": "v"},
			Checker:  []Checker{{CloudType: CloudK8s, Listor: []int{1}}},
		}},
	}

	c := orig.Clone()
	require.Equal(t, orig, c)

	c.Option.OutputMetadata[0] = "x"
	c.Profile[ProviderK8s] = "changed"
	c.Listor[0].RsType = "changed"
	c.Baseline[0].Tag[0] = "x"
	c.Baseline[0].Metadata["k"] = "x"
	c.Baseline[0].Checker[0].Listor[0] = 99

	assert.Equal(t, "a", orig.Option.OutputMetadata[0])
	assert.Equal(t, "kubeconfig", orig.Profile[ProviderK8s])
	assert.Equal(t, "", orig.Listor[0].RsType)
	assert.Equal(t, "t", orig.Baseline[0].Tag[0])
	assert.Equal(t, "v", orig.Baseline[0].Metadata["k"])
	assert.Equal(t, 1, orig.Baseline[0].Checker[0].Listor[0])
}

func TestConfigurationState_ClonePreservesNil(t *testing.T) {
	var zero ConfigurationState
	c := zero.Clone()

	assert.Nil(t, c.Option.OutputMetadata)
	assert.Nil(t, c.Profile)
	assert.Nil(t, c.Listor)
	assert.Nil(t, c.Baseline)
}

func TestParseEnums(t *testing.T) {
	_, err := ParseOutputFormat("json")
	assert.NoError(t, err)
	_, err = ParseOutputFormat("xml")
	assert.True(t, errors.Is(err, ErrUnknownOutputFormat))

	_, err = ParseProvider("aliyun")
	assert.NoError(t, err)
	_, err = ParseProvider("aws")
	assert.True(t, errors.Is(err, ErrUnknownProvider))

	_, err = ParseCloudType("tencent_cos")
	assert.NoError(t, err)
	_, err = ParseCloudType("tencent")
	assert.True(t, errors.Is(err, ErrUnknownCloudType))
}

func TestNextIDs(t *testing.T) {
	c := DefaultConf()
	assert.Equal(t, 1, c.NextListorID())
	assert.Equal(t, 1, c.NextBaselineID())

	c.Listor = []Listor{{ID: 3}, {ID: 7}, {ID: 2}}
	c.Baseline = []Baseline{{ID: 4}}
	assert.Equal(t, 8, c.NextListorID())
	assert.Equal(t, 5, c.NextBaselineID())
	assert.Equal(t, 1, c.ListorIndex(7))
	assert.Equal(t, -1, c.ListorIndex(5))
}

func TestDanglingListorRefs(t *testing.T) {
	c := DefaultConf()
	c.Listor = []Listor{{ID: 1, CloudType: CloudAliyun}}
	c.Baseline = []Baseline{
		{ID: 1, Checker: []Checker{{CloudType: CloudAliyun, Listor: []int{1, 2}}}},
		{ID: 2, Checker: []Checker{{CloudType: CloudAzure, Listor: []int{1}}, {CloudType: CloudAzure, Listor: []int{3}}}},
	}

	refs := c.DanglingListorRefs()
	assert.Equal(t, []ListorRef{
		{BaselineID: 1, Checker: 0, ListorID: 2},
		{BaselineID: 2, Checker: 1, ListorID: 3},
	}, refs)

	assert.True(t, errors.Is(c.CheckListorRefs(c.Baseline[0]), ErrUnknownListor))
	assert.NoError(t, c.CheckListorRefs(Baseline{Checker: []Checker{{Listor: []int{1}}}}))
}

func TestBaseline_References(t *testing.T) {
	b := Baseline{Checker: []Checker{{Listor: []int{1}}, {Listor: []int{4, 5}}}}
	assert.True(t, b.References(5))
	assert.False(t, b.References(2))
}
