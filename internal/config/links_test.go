package config

import "testing"

func TestExpandLink(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars LinkVars
		want string
	}{
		{
			name: "dandiset",
			tmpl: DefaultDandisetLink,
			vars: LinkVars{DandisetID: "001176"},
			want: "https://dandiarchive.org/dandiset/001176",
		},
		{
			name: "view hash",
			tmpl: "https://atlas.test/#{{.Hash}}",
			vars: LinkVars{Hash: "dandiset=001176&subject=sub-01"},
			want: "https://atlas.test/#dandiset=001176&subject=sub-01",
		},
		{
			name: "path values are escaped",
			tmpl: "/{{.SubjectID}}/{{.AssetID}}",
			vars: LinkVars{SubjectID: "sub 1", AssetID: "a/b"},
			want: "/sub%201/a%2Fb",
		},
		{
			name: "single pass",
			tmpl: "{{.DandisetID}}",
			vars: LinkVars{DandisetID: "{{.Hash}}", Hash: "x"},
			want: "%7B%7B.Hash%7D%7D",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandLink(tt.tmpl, tt.vars); got != tt.want {
				t.Errorf("ExpandLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigLinks(t *testing.T) {
	cfg := Default()
	if got := cfg.DandisetLink("000017"); got != "https://dandiarchive.org/dandiset/000017" {
		t.Errorf("DandisetLink() = %q", got)
	}
	if got := cfg.DandisetLink(""); got != "" {
		t.Errorf("DandisetLink(\"\") = %q, want empty", got)
	}
	if got := cfg.ViewLink(LinkVars{Hash: "region=313"}); got != "#region=313" {
		t.Errorf("ViewLink() = %q", got)
	}

	cfg.Links.Dandiset = ""
	if got := cfg.DandisetLink("000017"); got != "" {
		t.Errorf("disabled DandisetLink() = %q, want empty", got)
	}
}
