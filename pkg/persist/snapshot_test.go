package persist

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/s3studio/baseline-manager/internal/domain"
	"github.com/s3studio/baseline-manager/internal/domain/domaintest"
)

func TestEncode_Envelope(t *testing.T) {
	data, err := Encode("ui", domain.DefaultUI())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"schema_version": 1,
		"store": "ui",
		"state": {
			"themeName": "dark",
			"exportAll": false,
			"optionLocked": false,
			"profileLocked": false,
			"deleteBaselineWithListor": false
		}
	}`, string(data))
}

func TestProperty_ConfRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := domaintest.Conf().Draw(t, "state")

		data, err := Encode(domain.ConfStoreName, s)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := Decode[domain.ConfigurationState](domain.ConfStoreName, data, nil)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !assert.ObjectsAreEqual(s, got) {
			t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", s, got)
		}
	})
}

func TestProperty_UIRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := domaintest.UI().Draw(t, "state")

		data, err := Encode(domain.UIStoreName, s)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := Decode[domain.UIState](domain.UIStoreName, data, nil)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if s != got {
			t.Fatalf("round trip mismatch: want %+v got %+v", s, got)
		}
	})
}

func TestRoundTrip_EmptyCollections(t *testing.T) {
	s := domain.DefaultConf()
	s.Baseline = []domain.Baseline{{ID: 1, Tag: []string{}, Metadata: map[string]string{}, Checker: []domain.Checker{}}}

	data, err := Encode(domain.ConfStoreName, s)
	require.NoError(t, err)
	got, err := Decode[domain.ConfigurationState](domain.ConfStoreName, data, nil)
	require.NoError(t, err)

	assert.Equal(t, s, got)
}

func TestDecode_LegacySnapshot(t *testing.T) {
	legacy := []byte(`{"conf":{"option":{"output_format":"json","output_filename":"out","output_metadata":["id"],"output_risk_only":false},"profile":{"k8s":"cfg"},"listor":[],"baseline":[]}}`)

	got, err := Decode[domain.ConfigurationState](domain.ConfStoreName, legacy, domain.MigrateConfSnapshot)
	require.NoError(t, err)

	assert.Equal(t, domain.OutputFormatJSON, got.Option.OutputFormat)
	assert.Equal(t, []string{"id"}, got.Option.OutputMetadata)
	assert.Equal(t, "cfg", got.Profile[domain.ProviderK8s])
}

func TestDecode_LegacyUISnapshot(t *testing.T) {
	legacy := []byte(`{"themeName":"light","exportAll":true,"optionLocked":false,"profileLocked":true,"deleteBaselineWithListor":false}`)

	got, err := Decode[domain.UIState](domain.UIStoreName, legacy, domain.MigrateUISnapshot)
	require.NoError(t, err)

	assert.Equal(t, domain.UIState{ThemeName: "light", ExportAll: true, ProfileLocked: true}, got)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{`, ErrMalformedSnapshot},
		{"null", `null`, ErrMalformedSnapshot},
		{"array", `[]`, ErrMalformedSnapshot},
		{"unknown field", `{"schema_version":1,"store":"ui","state":{"themeName":"dark","fontSize":3}}`, ErrMalformedSnapshot},
		{"wrong type", `{"schema_version":1,"store":"ui","state":{"themeName":7}}`, ErrMalformedSnapshot},
		{"newer version", `{"schema_version":2,"store":"ui","state":{}}`, ErrUnsupportedVersion},
		{"zero version", `{"schema_version":0,"store":"ui","state":{}}`, ErrMalformedSnapshot},
		{"other store", `{"schema_version":1,"store":"conf","state":{}}`, ErrMalformedSnapshot},
		{"missing state", `{"schema_version":1,"store":"ui"}`, ErrMalformedSnapshot},
		{"unknown envelope field", `{"schema_version":1,"store":"ui","state":{},"extra":1}`, ErrMalformedSnapshot},
		{"legacy unknown field", `{"themeName":"dark","sidebar":true}`, ErrMalformedSnapshot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[domain.UIState](domain.UIStoreName, []byte(tt.data), nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_MigrationError(t *testing.T) {
	failing := func(version int, raw json.RawMessage) (json.RawMessage, error) {
		return nil, assert.AnError
	}

	_, err := Decode[domain.UIState](domain.UIStoreName, []byte(`{"themeName":"dark"}`), failing)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
	assert.ErrorIs(t, err, assert.AnError)
}
