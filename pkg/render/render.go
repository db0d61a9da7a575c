// Package render 将结构化内容树转换为有序的展示章节（选项卡/卡片）。
package render

import (
	"encoding/json"
	"strconv"
	"strings"

	"launchgpt-go/pkg/payload"
)

// DefaultOrder 是顶层章节的默认优先顺序，与系统提示中要求的键保持一致。
var DefaultOrder = []string{
	"market_research",
	"roadmap",
	"production",
	"sales",
	"marketing",
	"financials",
	"pricing_recommendation",
	"summary",
}

// RootKey 是非映射根节点渲染成的唯一章节的键。
const RootKey = "response"

// NodeKind 标识展示节点的类型。
type NodeKind string

const (
	KindLeaf  NodeKind = "leaf"
	KindEmpty NodeKind = "empty"
	KindList  NodeKind = "list"
	KindGroup NodeKind = "group"
)

// Node 是一个展示节点。映射中的子节点带有 Key/Label/Heading，列表中的子节点带有从 1 开始的 Index。
type Node struct {
	Kind     NodeKind `json:"kind"`
	Key      string   `json:"key,omitempty"`
	Label    string   `json:"label,omitempty"`
	Heading  int      `json:"heading,omitempty"`
	Index    int      `json:"index,omitempty"`
	Text     string   `json:"text,omitempty"`
	Children []Node   `json:"children,omitempty"`
}

// Section 是一个顶层章节。
type Section struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Body  Node   `json:"body"`
}

// Humanize 将键转换为标题，下划线替换为空格。
func Humanize(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// Render 按 preferred 中的顺序输出存在的键，其余键按出现顺序追加在后。
// preferred 为 nil 时使用 DefaultOrder。
func Render(v payload.Value, preferred []string) []Section {
	// 空映射与其他空值一样渲染为一个占位章节
	if v.Kind() != payload.KindMap || len(v.Fields()) == 0 {
		return []Section{{Key: RootKey, Title: Humanize(RootKey), Body: payload.Visit[Node](v, renderer{})}}
	}
	if preferred == nil {
		preferred = DefaultOrder
	}

	keys := OrderKeys(v.Keys(), preferred)
	sections := make([]Section, 0, len(keys))
	for _, k := range keys {
		child, _ := v.Get(k)
		sections = append(sections, Section{
			Key:   k,
			Title: Humanize(k),
			Body:  payload.Visit[Node](child, renderer{}),
		})
	}
	return sections
}

// OrderKeys 返回 keys 的重排结果：preferred 中存在的键在前（按 preferred 顺序），
// 其余键按原顺序在后。
func OrderKeys(keys, preferred []string) []string {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}

	out := make([]string, 0, len(keys))
	used := make(map[string]bool, len(keys))
	for _, k := range preferred {
		if present[k] && !used[k] {
			out = append(out, k)
			used[k] = true
		}
	}
	for _, k := range keys {
		if !used[k] {
			out = append(out, k)
			used[k] = true
		}
	}
	return out
}

// renderer 实现 payload.Visitor，depth 只用于决定分组标签的标题级别。
type renderer struct {
	depth int
}

func (r renderer) VisitNull() Node { return Node{Kind: KindEmpty} }

func (r renderer) VisitString(s string) Node { return Node{Kind: KindLeaf, Text: s} }

func (r renderer) VisitNumber(n json.Number) Node { return Node{Kind: KindLeaf, Text: n.String()} }

func (r renderer) VisitBool(b bool) Node { return Node{Kind: KindLeaf, Text: strconv.FormatBool(b)} }

func (r renderer) VisitList(items []payload.Value) Node {
	if len(items) == 0 {
		return Node{Kind: KindEmpty}
	}
	next := renderer{depth: r.depth + 1}
	children := make([]Node, 0, len(items))
	for i, item := range items {
		child := payload.Visit[Node](item, next)
		child.Index = i + 1
		children = append(children, child)
	}
	return Node{Kind: KindList, Children: children}
}

func (r renderer) VisitMap(fields []payload.Field) Node {
	if len(fields) == 0 {
		return Node{Kind: KindEmpty}
	}
	next := renderer{depth: r.depth + 1}
	children := make([]Node, 0, len(fields))
	for _, f := range fields {
		child := payload.Visit[Node](f.Value, next)
		child.Key = f.Key
		child.Label = Humanize(f.Key)
		child.Heading = headingFor(r.depth)
		children = append(children, child)
	}
	return Node{Kind: KindGroup, Children: children}
}

// headingFor 章节标题使用 h3，第一层分组 h4，依次递减，最深为 h6。
func headingFor(depth int) int {
	h := 4 + depth
	if h > 6 {
		h = 6
	}
	return h
}

// Walk 深度优先遍历所有章节中的节点。
func Walk(sections []Section, fn func(n Node)) {
	for _, s := range sections {
		walkNode(s.Body, fn)
	}
}

func walkNode(n Node, fn func(n Node)) {
	fn(n)
	for _, c := range n.Children {
		walkNode(c, fn)
	}
}

// Leaves 统计叶子节点（含空占位）的数量。
func Leaves(sections []Section) int {
	count := 0
	Walk(sections, func(n Node) {
		if n.Kind == KindLeaf || n.Kind == KindEmpty {
			count++
		}
	})
	return count
}
