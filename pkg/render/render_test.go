package render

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"launchgpt-go/pkg/payload"
)

func parse(t *testing.T, s string) payload.Value {
	t.Helper()
	v, err := payload.Parse([]byte(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return v
}

func sectionKeys(sections []Section) string {
	keys := make([]string, 0, len(sections))
	for _, s := range sections {
		keys = append(keys, s.Key)
	}
	return strings.Join(keys, ",")
}

func TestRenderPreferredOrderThenEncounterOrder(t *testing.T) {
	v := parse(t, `{"summary":"s","zeta":1,"market_research":{"a":1},"alpha":2,"roadmap":[]}`)
	got := sectionKeys(Render(v, nil))
	want := "market_research,roadmap,summary,zeta,alpha"
	if got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}

func TestRenderCustomOrderAndDuplicates(t *testing.T) {
	v := parse(t, `{"b":1,"a":2,"c":3}`)
	got := sectionKeys(Render(v, []string{"c", "missing", "c", "a"}))
	if got != "c,a,b" {
		t.Fatalf("order = %s", got)
	}
	if got := sectionKeys(Render(v, []string{})); got != "b,a,c" {
		t.Fatalf("empty hint should keep encounter order, got %s", got)
	}
}

func TestRenderTitlesAndHeadings(t *testing.T) {
	v := parse(t, `{"pricing_recommendation":{"initial_price":{"usd":24.99}}}`)
	sections := Render(v, nil)
	if sections[0].Title != "pricing recommendation" {
		t.Fatalf("title = %q", sections[0].Title)
	}
	body := sections[0].Body
	if body.Kind != KindGroup || len(body.Children) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	price := body.Children[0]
	if price.Label != "initial price" || price.Heading != 4 {
		t.Fatalf("unexpected entry: %+v", price)
	}
	usd := price.Children[0]
	if usd.Heading != 5 || usd.Kind != KindLeaf || usd.Text != "24.99" {
		t.Fatalf("unexpected nested entry: %+v", usd)
	}
}

func TestRenderEmptyValuesBecomePlaceholders(t *testing.T) {
	v := parse(t, `{"a":null,"b":[],"c":{},"d":""}`)
	sections := Render(v, []string{})
	if len(sections) != 4 {
		t.Fatalf("every key must produce a section, got %d", len(sections))
	}
	for _, s := range sections[:3] {
		if s.Body.Kind != KindEmpty {
			t.Fatalf("section %s: kind = %s, want empty", s.Key, s.Body.Kind)
		}
	}
	if sections[3].Body.Kind != KindLeaf {
		t.Fatalf("empty string should stay a leaf")
	}
}

func TestRenderNonMappingRoot(t *testing.T) {
	for _, in := range []string{`null`, `[]`, `{}`, `"plain text"`, `[1,{"a":2}]`, `7`} {
		sections := Render(parse(t, in), nil)
		if len(sections) != 1 || sections[0].Key != RootKey {
			t.Fatalf("root %s: unexpected sections %+v", in, sections)
		}
	}
}

func TestRenderEmptyRootIsPlaceholder(t *testing.T) {
	sections := Render(parse(t, `{}`), nil)
	if len(sections) != 1 || sections[0].Key != RootKey || sections[0].Body.Kind != KindEmpty {
		t.Fatalf("unexpected sections %+v", sections)
	}
	if got := PlainText(sections); got != "## response\n(empty)\n" {
		t.Fatalf("PlainText = %q", got)
	}
}

func TestRenderListIndexes(t *testing.T) {
	sections := Render(parse(t, `{"roadmap":["design","build",{"step":"launch"}]}`), nil)
	list := sections[0].Body
	if list.Kind != KindList || len(list.Children) != 3 {
		t.Fatalf("unexpected list: %+v", list)
	}
	for i, c := range list.Children {
		if c.Index != i+1 {
			t.Fatalf("child %d index = %d", i, c.Index)
		}
	}
	if list.Children[2].Kind != KindGroup {
		t.Fatalf("object in list should be a nested group")
	}
}

// countLeaves 统计 payload 中的叶子：标量与空容器各算一个。
func countLeaves(v payload.Value) int {
	switch v.Kind() {
	case payload.KindList:
		if len(v.Items()) == 0 {
			return 1
		}
		n := 0
		for _, item := range v.Items() {
			n += countLeaves(item)
		}
		return n
	case payload.KindMap:
		if len(v.Fields()) == 0 {
			return 1
		}
		n := 0
		for _, f := range v.Fields() {
			n += countLeaves(f.Value)
		}
		return n
	}
	return 1
}

func randomValue(r *rand.Rand, depth int) payload.Value {
	choice := r.Intn(7)
	if depth <= 0 && choice >= 5 {
		choice = r.Intn(5)
	}
	switch choice {
	case 0:
		return payload.Null()
	case 1:
		return payload.String("s" + strconv.Itoa(r.Intn(100)))
	case 2:
		return payload.Number(json.Number(strconv.Itoa(r.Intn(1000))))
	case 3:
		return payload.Bool(r.Intn(2) == 0)
	case 4:
		if r.Intn(2) == 0 {
			return payload.List()
		}
		return payload.Map()
	case 5:
		n := r.Intn(4)
		items := make([]payload.Value, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, randomValue(r, depth-1))
		}
		return payload.List(items...)
	default:
		n := r.Intn(4)
		fields := make([]payload.Field, 0, n)
		for i := 0; i < n; i++ {
			fields = append(fields, payload.Field{Key: "k" + strconv.Itoa(i), Value: randomValue(r, depth-1)})
		}
		return payload.Map(fields...)
	}
}

func TestRenderVisitsEveryLeafOnce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		v := randomValue(r, 6)
		sections := Render(v, nil)
		want := countLeaves(v)
		if got := Leaves(sections); got != want {
			raw, _ := json.Marshal(v)
			t.Fatalf("leaves = %d, want %d for %s", got, want, raw)
		}
	}
}

func TestRenderDeepNesting(t *testing.T) {
	const depth = 10000
	v := payload.String("bottom")
	for i := 0; i < depth; i++ {
		if i%2 == 0 {
			v = payload.List(v)
		} else {
			v = payload.Map(payload.Field{Key: "level", Value: v})
		}
	}
	root := payload.Map(payload.Field{Key: "deep", Value: v})
	sections := Render(root, nil)
	if Leaves(sections) != 1 {
		t.Fatalf("expected exactly one leaf")
	}
	maxHeading := 0
	Walk(sections, func(n Node) {
		if n.Heading > maxHeading {
			maxHeading = n.Heading
		}
	})
	if maxHeading != 6 {
		t.Fatalf("heading weight should cap at 6, got %d", maxHeading)
	}
}

func TestPlainText(t *testing.T) {
	sections := Render(parse(t, `{"summary":"Launch fast","roadmap":["MVP",{"phase":"beta"}],"notes":null}`), nil)
	got := PlainText(sections)
	want := strings.Join([]string{
		"## roadmap",
		"1. MVP",
		"2.",
		"  phase:",
		"    beta",
		"",
		"## summary",
		"Launch fast",
		"",
		"## notes",
		"(empty)",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("PlainText mismatch:\n%s\nwant:\n%s", got, want)
	}
}
