package util

import "testing"

func TestMaskDSN(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "url con usuario y password",
			in:   "postgres://pathsync:s3cr3t@db:5432/catalog?sslmode=disable",
			want: "postgres://p…:***@db:5432/catalog?sslmode=disable",
		},
		{
			name: "url sin password",
			in:   "postgres://pathsync@db:5432/catalog",
			want: "postgres://p…@db:5432/catalog",
		},
		{
			name: "url sin userinfo",
			in:   "postgres://db:5432/catalog",
			want: "postgres://db:5432/catalog",
		},
		{
			name: "forma keyword de libpq",
			in:   "host=db port=5432 user=pathsync password=s3cr3t dbname=catalog",
			want: "host=db port=5432 user=pathsync password=*** dbname=catalog",
		},
		{
			name: "vacío",
			in:   "",
			want: "",
		},
		{
			name: "espacios alrededor",
			in:   "  postgres://u:p@db/c  ",
			want: "postgres://u:***@db/c",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskDSN(tc.in); got != tc.want {
				t.Fatalf("MaskDSN(%q) = %q, esperaba %q", tc.in, got, tc.want)
			}
		})
	}
}
