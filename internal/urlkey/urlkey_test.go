package urlkey

import "testing"

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if contains(b, v) {
			return true
		}
	}
	return false
}

func TestCandidates_Empty(t *testing.T) {
	t.Parallel()

	if got := Candidates("   "); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
}

func TestCandidates_MalformedInputIsSoleCandidate(t *testing.T) {
	t.Parallel()

	got := Candidates("  not a url at all  ")
	if len(got) != 1 || got[0] != "not a url at all" {
		t.Fatalf("expected [\"not a url at all\"], got %v", got)
	}
}

func TestCandidates_OriginalComesFirst(t *testing.T) {
	t.Parallel()

	raw := "https://example.com/p/1?x=1#frag"
	got := Candidates(raw)
	if len(got) == 0 || got[0] != raw {
		t.Fatalf("expected first candidate %q, got %v", raw, got)
	}
}

func TestCandidates_StripsFragmentQueryAndTrailingSlash(t *testing.T) {
	t.Parallel()

	got := Candidates("https://example.com/p/1/?x=1#frag")
	for _, want := range []string{
		"https://example.com/p/1/?x=1",
		"https://example.com/p/1/",
		"https://example.com/p/1",
	} {
		if !contains(got, want) {
			t.Fatalf("missing candidate %q in %v", want, got)
		}
	}
}

func TestCandidates_AmazonASINForms(t *testing.T) {
	t.Parallel()

	got := Candidates("https://www.amazon.com/Some-Product/dp/B0TESTXXXX/ref=sr_1_1?keywords=x")
	for _, want := range []string{
		"https://www.amazon.com/dp/B0TESTXXXX",
		"https://amazon.com/dp/B0TESTXXXX",
		"http://www.amazon.com/dp/B0TESTXXXX",
		"http://amazon.com/dp/B0TESTXXXX",
	} {
		if !contains(got, want) {
			t.Fatalf("missing ASIN form %q in %v", want, got)
		}
	}
}

func TestCandidates_ASINCaseNormalized(t *testing.T) {
	t.Parallel()

	lower := Candidates("https://www.amazon.com/dp/b0testxxxx/")
	upper := Candidates("https://www.amazon.com/dp/B0TESTXXXX")
	if !contains(lower, "https://www.amazon.com/dp/B0TESTXXXX") {
		t.Fatalf("lowercase ASIN not normalized: %v", lower)
	}
	if !intersects(lower, upper) {
		t.Fatalf("case variants do not intersect: %v vs %v", lower, upper)
	}
}

func TestCandidates_GpProductPath(t *testing.T) {
	t.Parallel()

	got := Candidates("https://www.amazon.in/gp/product/B0TESTXXXX?th=1")
	if !contains(got, "https://www.amazon.in/dp/B0TESTXXXX") {
		t.Fatalf("gp/product path not canonicalized: %v", got)
	}
}

func TestCandidates_RefSegmentStripped(t *testing.T) {
	t.Parallel()

	withRef := Candidates("https://www.amazon.com/dp/B0TESTXXXX/ref=sr_1_1")
	without := Candidates("https://www.amazon.com/dp/B0TESTXXXX")
	if !intersects(withRef, without) {
		t.Fatalf("ref variants do not intersect: %v vs %v", withRef, without)
	}
	if !contains(withRef, "https://www.amazon.com/dp/B0TESTXXXX") {
		t.Fatalf("expected ref-stripped candidate in %v", withRef)
	}
}

func TestCandidates_NonMerchantHostGetsNoASINForms(t *testing.T) {
	t.Parallel()

	got := Candidates("https://example.com/dp/B0TESTXXXX")
	if contains(got, "http://example.com/dp/B0TESTXXXX") {
		t.Fatalf("unexpected synthesized scheme variant for non-merchant host: %v", got)
	}
}

func TestCandidates_NoDuplicates(t *testing.T) {
	t.Parallel()

	got := Candidates("https://www.amazon.com/dp/B0TESTXXXX")
	seen := map[string]bool{}
	for _, v := range got {
		if seen[v] {
			t.Fatalf("duplicate candidate %q in %v", v, got)
		}
		seen[v] = true
	}
}

func TestExtractASIN(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want string
	}{
		{"/dp/B0TESTXXXX", "B0TESTXXXX"},
		{"/dp/b0testxxxx/", "B0TESTXXXX"},
		{"/gp/product/B0TESTXXXX/ref=x", "B0TESTXXXX"},
		{"/Some-Title/dp/B0TESTXXXX/ref=sr_1_1", "B0TESTXXXX"},
		{"/dp/SHORT", ""},
		{"/no/asin/here", ""},
	}
	for _, tc := range cases {
		if got := ExtractASIN(tc.path); got != tc.want {
			t.Fatalf("ExtractASIN(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestIsMerchantHost(t *testing.T) {
	t.Parallel()

	for host, want := range map[string]bool{
		"www.amazon.com": true,
		"amazon.in":      true,
		"AMZN.TO":        true,
		"amzn.in":        true,
		"smile.amazon.de": true,
		"example.com":    false,
		"notamzn.to.evil": false,
	} {
		if got := IsMerchantHost(host); got != want {
			t.Fatalf("IsMerchantHost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIsShortlinkHost(t *testing.T) {
	t.Parallel()

	if !IsShortlinkHost("amzn.to", "amzn.to") {
		t.Fatal("exact host should match")
	}
	if !IsShortlinkHost("a.amzn.to", "amzn.to") {
		t.Fatal("subdomain should match")
	}
	if IsShortlinkHost("evilamzn.to", "amzn.to") {
		t.Fatal("suffix without dot boundary must not match")
	}
	if IsShortlinkHost("amzn.to", "") {
		t.Fatal("empty allowlist must not match")
	}
}
