// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestEnvNameValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   EnvName
		wantErr bool
	}{
		{name: "simple", value: "dev"},
		{name: "dotted", value: "corp.vpn"},
		{name: "empty", value: "", wantErr: true},
		{name: "space", value: "my env", wantErr: true},
		{name: "slash", value: "a/b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("EnvName(%q).Validate() error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidEnvName) {
				t.Errorf("error does not wrap ErrInvalidEnvName: %v", err)
			}
		})
	}
}

func TestEnvNamePodName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value EnvName
		want  string
	}{
		{"dev", "podenv-dev"},
		{"corp.vpn", "podenv-corp.vpn"},
		{"web:8080", "podenv-web-8080"},
		{"été", "podenv--t-"},
	}

	for _, tt := range tests {
		if got := tt.value.PodName(); got != tt.want {
			t.Errorf("EnvName(%q).PodName() = %q, want %q", tt.value, got, tt.want)
		}
	}
}
