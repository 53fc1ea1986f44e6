package fragment

import "testing"

func TestSplit(t *testing.T) {
	tests := []struct {
		href    string
		base    string
		frag    string
		hasFrag bool
	}{
		{"https://pad.example/", "https://pad.example/", "", false},
		{"https://pad.example/#", "https://pad.example/", "", true},
		{"https://pad.example/#abc", "https://pad.example/", "abc", true},
		{"https://pad.example/?q=1#abc#def", "https://pad.example/?q=1", "abc#def", true},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			base, frag, has := Split(tt.href)
			if base != tt.base || frag != tt.frag || has != tt.hasFrag {
				t.Errorf("Split(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.href, base, frag, has, tt.base, tt.frag, tt.hasFrag)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	if got := Join("https://pad.example/#old", "new"); got != "https://pad.example/#new" {
		t.Errorf("Join() = %q", got)
	}
	if got := Join("https://pad.example/#old", ""); got != "https://pad.example/" {
		t.Errorf("Join() with empty token = %q", got)
	}
}

func TestStoreRead(t *testing.T) {
	tests := []struct {
		name   string
		href   string
		want   string
		wantOK bool
	}{
		{"no marker", "https://pad.example/", "", false},
		{"empty fragment", "https://pad.example/#", "", false},
		{"token", "https://pad.example/#y0jN", "y0jN", true},
		{"raw invalid text", "https://pad.example/#not valid!", "not valid!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(NewMemoryLocation(tt.href))
			got, ok := s.Read()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Read() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStoreWriteIsIdempotent(t *testing.T) {
	loc := NewMemoryLocation("https://pad.example/?mode=dark")
	s := NewStore(loc)

	if !s.Write("abc") {
		t.Fatal("first Write() should change the URL")
	}
	if s.Write("abc") {
		t.Error("second Write() with the same token should be a no-op")
	}

	if got := loc.Href(); got != "https://pad.example/?mode=dark#abc" {
		t.Errorf("Href() = %q", got)
	}
	if got := loc.Changes(); got != 1 {
		t.Errorf("Changes() = %d, want 1", got)
	}
	if got := loc.HistoryLen(); got != 1 {
		t.Errorf("HistoryLen() = %d, want 1 (writes must replace, not push)", got)
	}
}

func TestStoreWriteReplacesExistingFragment(t *testing.T) {
	loc := NewMemoryLocation("https://pad.example/#old")
	s := NewStore(loc)

	if !s.Write("new") {
		t.Fatal("Write() should change the URL")
	}
	if got := loc.Href(); got != "https://pad.example/#new" {
		t.Errorf("Href() = %q", got)
	}
}

func TestStoreClear(t *testing.T) {
	t.Run("removes marker", func(t *testing.T) {
		loc := NewMemoryLocation("https://pad.example/?q=1#abc")
		if !NewStore(loc).Clear() {
			t.Fatal("Clear() should change the URL")
		}
		if got := loc.Href(); got != "https://pad.example/?q=1" {
			t.Errorf("Href() = %q", got)
		}
	})

	t.Run("bare marker is normalized", func(t *testing.T) {
		loc := NewMemoryLocation("https://pad.example/#")
		if !NewStore(loc).Clear() {
			t.Fatal("Clear() should drop a bare '#'")
		}
		if got := loc.Href(); got != "https://pad.example/" {
			t.Errorf("Href() = %q", got)
		}
	})

	t.Run("no fragment is a no-op", func(t *testing.T) {
		loc := NewMemoryLocation("https://pad.example/")
		if NewStore(loc).Clear() {
			t.Error("Clear() without fragment should be a no-op")
		}
		if loc.Changes() != 0 {
			t.Errorf("Changes() = %d, want 0", loc.Changes())
		}
	})

	t.Run("empty write clears", func(t *testing.T) {
		loc := NewMemoryLocation("https://pad.example/#abc")
		if !NewStore(loc).Write("") {
			t.Fatal("Write(\"\") should clear")
		}
		if got := loc.Href(); got != "https://pad.example/" {
			t.Errorf("Href() = %q", got)
		}
	})
}

func TestModeString(t *testing.T) {
	if ModeReplace.String() != "replace" || ModePush.String() != "push" || Mode(9).String() != "unknown" {
		t.Error("unexpected Mode strings")
	}
}

func TestTokenOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"y0jNyclXKM8vykkBAA", "y0jNyclXKM8vykkBAA"},
		{"  y0jNyclXKM8vykkBAA\n", "y0jNyclXKM8vykkBAA"},
		{"https://pad.example/#y0jNyclXKM8vykkBAA", "y0jNyclXKM8vykkBAA"},
		{"#abc", "abc"},
		{"https://pad.example/#", ""},
		{"https://pad.example/", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := TokenOf(tc.in); got != tc.want {
			t.Errorf("TokenOf(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
