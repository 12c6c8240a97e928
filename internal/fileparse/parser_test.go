package fileparse

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     Parsed
	}{
		{
			name:     "full section and part number",
			filename: "БНС.КМД.123.456.789.001 Корпус.pdf",
			want:     Parsed{SectionCode: "БНС.КМД", PartNumber: "123.456.789.001", Name: "Корпус"},
		},
		{
			name:     "numeric prefix",
			filename: "БНС.ТХ.24. Ротор сборка.pdf",
			want:     Parsed{SectionCode: "БНС.ТХ", PartNumber: "24", Name: "Ротор сборка"},
		},
		{
			name:     "plain name",
			filename: "Документ без кода.pdf",
			want:     Parsed{Name: "Документ без кода"},
		},
		{
			name:     "underscored name",
			filename: "random_file_name.pdf",
			want:     Parsed{Name: "random_file_name"},
		},
		{
			name:     "latin section code",
			filename: "AB1.TX.12.345.678.901 Cover.pdf",
			want:     Parsed{SectionCode: "AB1.TX", PartNumber: "12.345.678.901", Name: "Cover"},
		},
		{
			name:     "uppercase extension",
			filename: "Корпус.PDF",
			want:     Parsed{Name: "Корпус"},
		},
		{
			name:     "no extension",
			filename: "Корпус",
			want:     Parsed{Name: "Корпус"},
		},
		{
			name:     "empty filename",
			filename: "",
			want:     Parsed{Name: "unnamed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.filename)
			if got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestParseNameNeverEmpty(t *testing.T) {
	for _, filename := range []string{"", ".pdf", "   .pdf", "a.pdf"} {
		if got := Parse(filename); got.Name == "" {
			t.Fatalf("Parse(%q) produced empty name", filename)
		}
	}
}

func TestFallbackPartNumber(t *testing.T) {
	if got := FallbackPartNumber("my drawing v2.pdf"); got != "my_drawing_v2" {
		t.Fatalf("expected my_drawing_v2, got %q", got)
	}
	if got := FallbackPartNumber("noext"); got != "noext" {
		t.Fatalf("expected noext, got %q", got)
	}

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	if got := FallbackPartNumber(string(long)); len(got) != 100 {
		t.Fatalf("expected cap at 100 chars, got %d", len(got))
	}
}
