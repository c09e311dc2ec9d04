package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectInputArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"pagemgr"},
			want: []string{"pagemgr"},
		},
		{
			name: "pdf first token",
			in:   []string{"pagemgr", "a.pdf", "b.PDF"},
			want: []string{"pagemgr", "inputs", "add", "a.pdf", "b.PDF"},
		},
		{
			name: "pdf after value flag",
			in:   []string{"pagemgr", "--workspace", "books", "scan.pdf"},
			want: []string{"pagemgr", "--workspace", "books", "inputs", "add", "scan.pdf"},
		},
		{
			name: "pdf after equals flag",
			in:   []string{"pagemgr", "--dir=./ws", "scan.pdf"},
			want: []string{"pagemgr", "--dir=./ws", "inputs", "add", "scan.pdf"},
		},
		{
			name: "pdf after bool flag",
			in:   []string{"pagemgr", "--pretty", "scan.pdf"},
			want: []string{"pagemgr", "--pretty", "inputs", "add", "scan.pdf"},
		},
		{
			name: "after double dash",
			in:   []string{"pagemgr", "--", "scan.pdf"},
			want: []string{"pagemgr", "--", "inputs", "add", "scan.pdf"},
		},
		{
			name: "subcommand untouched",
			in:   []string{"pagemgr", "inputs", "add", "scan.pdf"},
			want: []string{"pagemgr", "inputs", "add", "scan.pdf"},
		},
		{
			name: "value flag that looks like a pdf",
			in:   []string{"pagemgr", "--dir", "x.pdf", "generate"},
			want: []string{"pagemgr", "--dir", "x.pdf", "generate"},
		},
		{
			name: "bare extension is not a file",
			in:   []string{"pagemgr", ".pdf"},
			want: []string{"pagemgr", ".pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectInputArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}
