package guid

import "testing"

func TestNewUnique(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatal(err)
	}
	g2, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if g == g2 {
		t.Fatalf("GUIDs are equal: %s, %s", g, g2)
	}
}

func TestFromStringRoundTrip(t *testing.T) {
	orig := "8e35239e-2084-490e-a3db-ab18ee0744cb"
	g, err := FromString(orig)
	if err != nil {
		t.Fatal(err)
	}
	if s := g.String(); s != orig {
		t.Fatalf("GUIDs not equal: %s, %s", orig, s)
	}
}

func TestFromStringRejectsBadLength(t *testing.T) {
	if _, err := FromString("not-a-guid"); err == nil {
		t.Fatal("expected an error for a malformed GUID")
	}
}

func TestFromStringRejectsBadDashes(t *testing.T) {
	bad := "8e35239e2-084-490e-a3db-ab18ee0744cb"
	if _, err := FromString(bad); err == nil {
		t.Fatal("expected an error for misplaced dashes")
	}
}
