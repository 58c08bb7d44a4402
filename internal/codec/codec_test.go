package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/aidanlsb/pubs/internal/paper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageRank = `% exported from somewhere
@string{ stan = "Stanford InfoLab" }

@techreport{Page99,
  title = {The {PageRank} Citation Ranking:
           Bringing Order to the Web},
  author = "Page, Lawrence and Brin, Sergey",
  year = 1999,
  month = nov,
  institution = stan # { Technical Report},
}
`

func TestParseBibTeX(t *testing.T) {
	records, err := ParseBibTeX([]byte(pageRank))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Page99", rec.Key)
	assert.Equal(t, "techreport", rec.Entry.Type)
	assert.Equal(t, "The {PageRank} Citation Ranking:\n           Bringing Order to the Web", rec.Entry.Title())
	assert.Equal(t, []string{"Page, Lawrence", "Brin, Sergey"}, rec.Entry.Authors())

	Tidy(rec.Entry)
	assert.Equal(t, "The {PageRank} Citation Ranking: Bringing Order to the Web", rec.Entry.Title())
	assert.Equal(t, "1999", rec.Entry.Year())
	assert.Equal(t, "November", rec.Entry.Get("month"))
	assert.Equal(t, "Stanford InfoLab Technical Report", rec.Entry.Get("institution"))
}

func TestParseBibTeXMultiple(t *testing.T) {
	src := `@comment{ignored {nested} text}
@article(Doe2013, author={Doe, John}, year={2013})
@book{Roe2001,
  editor = {Roe, Jane},
  title = {Collected},
}`
	records, err := ParseBibTeX([]byte(src))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Doe2013", records[0].Key)
	assert.Equal(t, "article", records[0].Entry.Type)
	assert.Equal(t, "Roe2001", records[1].Key)
	assert.Equal(t, []string{"Roe, Jane"}, records[1].Entry.Editors())
}

func TestParseBibTeXErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated entry", "@article{Doe2013, title = {x}"},
		{"unterminated brace", "@article{Doe2013, title = {x"},
		{"missing equals", "@article{Doe2013, title {x}}"},
		{"undefined macro", "@article{Doe2013, journal = nowhere}"},
		{"duplicate key", "@misc{A, title={x}}\n@misc{A, title={y}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBibTeX([]byte(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode))

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, "bibtex", de.Kind)
		})
	}
}

func TestParseBibTeXEmptyKey(t *testing.T) {
	records, err := ParseBibTeX([]byte("@article{, title={x}}\n@book{,title={y}}"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "", records[0].Key)
	assert.Equal(t, "book", records[1].Entry.Type)
}

func TestDecodeBibRequiresOneEntry(t *testing.T) {
	_, err := DecodeBib([]byte("no entries here"))
	assert.True(t, errors.Is(err, ErrDecode))

	_, err = DecodeBib([]byte("@misc{A, title={x}}\n@misc{B, title={y}}"))
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestEncodeBibIsStableAndDecodable(t *testing.T) {
	e := paper.NewEntry("article")
	e.Set("zeta", "last")
	e.Set("year", "2013")
	e.Set("title", "A {Title}")
	e.Set("author", "Doe, John")
	e.Set("abstract", "")

	data, err := EncodeBib("Doe2013", e)
	require.NoError(t, err)
	got := string(data)
	want := "@article{Doe2013,\n" +
		"  author = {Doe, John},\n" +
		"  title = {A {Title}},\n" +
		"  year = {2013},\n" +
		"  zeta = {last},\n" +
		"}\n"
	assert.Equal(t, want, got)

	decoded, err := DecodeBib([]byte(got))
	require.NoError(t, err)
	assert.True(t, e.Equal(decoded))
}

func TestEncodeBibRoundTripsAwkwardValues(t *testing.T) {
	values := map[string]string{
		"stray close brace": "Sets like a } b",
		"quote in braces":   `He said "hi"`,
		"close then quote":  `a } {"b"}`,
		"paragraphs":        "First paragraph.\n\nSecond  paragraph.",
		"edge whitespace":   "  padded\t",
		"hash and at":       "C# @ work % 100",
	}
	for name, v := range values {
		t.Run(name, func(t *testing.T) {
			e := paper.NewEntry("misc")
			e.Set("title", v)
			data, err := EncodeBib("Doe2013", e)
			require.NoError(t, err)

			decoded, err := DecodeBib(data)
			require.NoError(t, err, string(data))
			assert.Equal(t, v, decoded.Title())
		})
	}
}

func TestEncodeBibRejectsUnrepresentableValue(t *testing.T) {
	for _, v := range []string{"left { only", `a } "b"`} {
		e := paper.NewEntry("misc")
		e.Set("title", v)
		_, err := EncodeBib("Doe2013", e)
		require.Error(t, err, v)
		assert.True(t, errors.Is(err, ErrEncode))

		var ee *EncodeError
		require.True(t, errors.As(err, &ee))
		assert.Equal(t, "title", ee.Field)
	}

	e := paper.NewEntry("misc")
	e.Set("title", "left { only")
	_, err := EncodeBibs([]Record{{Key: "Doe2013", Entry: e}})
	assert.ErrorIs(t, err, ErrEncode)
}

func TestTidy(t *testing.T) {
	e := paper.NewEntry("article")
	e.Set("title", "Computing Machinery\n    and  Intelligence")
	e.Set("abstract", "  One\n  line.\n\n   \n Two.  ")
	e.Set("note", " \n ")
	Tidy(e)
	assert.Equal(t, "Computing Machinery and Intelligence", e.Title())
	assert.Equal(t, "One line.\n\nTwo.", e.Get("abstract"))
	assert.Empty(t, e.Get("note"))
}

func TestMetaRoundTrip(t *testing.T) {
	m := paper.NewMetadata()
	m.DocPath = "docsdir://Page99.pdf"
	m.SetTags([]string{"search", "graphs"})
	m.Added = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	m.Extra = map[string]any{"rating": 4, "read": true}

	data, err := EncodeMeta(m)
	require.NoError(t, err)
	assert.Equal(t, "docfile: docsdir://Page99.pdf\n"+
		"tags: [graphs, search]\n"+
		"added: \"2024-03-01 12:30:00\"\n"+
		"rating: 4\n"+
		"read: true\n", string(data))

	back, err := DecodeMeta(data)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestDecodeMetaLenient(t *testing.T) {
	m, err := DecodeMeta([]byte("docfile: null\ntags: 'b, a'\nadded: 2020-01-02\n"))
	require.NoError(t, err)
	assert.Empty(t, m.DocPath)
	assert.Equal(t, []string{"a", "b"}, m.Tags)
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), m.Added)

	empty, err := DecodeMeta(nil)
	require.NoError(t, err)
	assert.Equal(t, paper.NewMetadata(), empty)
}

func TestDecodeMetaErrors(t *testing.T) {
	for _, src := range []string{
		"tags: [a\n",
		"added: yesterday\n",
		"tags: {a: b}\n",
		"docfile: [x]\n",
	} {
		_, err := DecodeMeta([]byte(src))
		assert.True(t, errors.Is(err, ErrDecode), src)
	}
}
