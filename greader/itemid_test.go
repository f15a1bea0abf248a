package greader

import "testing"

func TestStreamItemID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{
			name: "short decimal id",
			id:   "1212057943759655068",
			want: "tag:google.com,2005:reader/item/10d2184730fc109c",
		},
		{
			name: "negative decimal id",
			id:   "-355401917359550817",
			want: "tag:google.com,2005:reader/item/fb115bd6d34a8e9f",
		},
		{
			name: "small id zero padded",
			id:   "77",
			want: "tag:google.com,2005:reader/item/000000000000004d",
		},
		{
			name: "already long form",
			id:   "tag:google.com,2005:reader/item/10d2184730fc109c",
			want: "tag:google.com,2005:reader/item/10d2184730fc109c",
		},
		{
			name: "unparseable id passed through prefixed",
			id:   "not-a-number",
			want: "tag:google.com,2005:reader/item/not-a-number",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StreamItemID(tt.id); got != tt.want {
				t.Errorf("StreamItemID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestShortItemID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{
			name: "long form to decimal",
			id:   "tag:google.com,2005:reader/item/10d2184730fc109c",
			want: "1212057943759655068",
		},
		{
			name: "high bit becomes negative decimal",
			id:   "tag:google.com,2005:reader/item/fb115bd6d34a8e9f",
			want: "-355401917359550817",
		},
		{
			name: "short id passes through",
			id:   "1212057943759655068",
			want: "1212057943759655068",
		},
		{
			name: "non hex tail passes through without prefix",
			id:   "tag:google.com,2005:reader/item/zzzz",
			want: "zzzz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortItemID(tt.id); got != tt.want {
				t.Errorf("ShortItemID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestItemIDRoundTrip(t *testing.T) {
	ids := []string{"1212057943759655068", "-1", "0", "77"}
	for _, id := range ids {
		if got := ShortItemID(StreamItemID(id)); got != id {
			t.Errorf("round trip of %q = %q", id, got)
		}
	}
}
