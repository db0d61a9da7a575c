// Package extract 从模型返回的自由文本中提取结构化 JSON 对象。
//
// 模型并不保证只输出 JSON：结果可能被包裹在 ``` 代码块中，前后可能还有说明文字。
// 提取按固定顺序依次尝试多种策略，第一个成功的策略胜出；全部失败时返回携带原文的
// Unstructured 结果，而不是错误。
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"launchgpt-go/pkg/payload"
)

// Kind 区分提取结果是否为结构化内容。
type Kind uint8

const (
	Unstructured Kind = iota
	Structured
)

// Result 是一次提取的结果。Structured 时 Payload 为解析出的对象；
// Unstructured 时 Raw 原样保留模型输出。
type Result struct {
	Kind     Kind
	Payload  payload.Value
	Raw      string
	Strategy string
}

// IsStructured 报告是否成功提取出 JSON 对象。
func (r Result) IsStructured() bool { return r.Kind == Structured }

// Attempt 是一次可能失败的提取尝试。
type Attempt struct {
	Name string
	Run  func(text string) (payload.Value, error)
}

var (
	errNoCandidate = errors.New("no candidate found")
	errNotObject   = errors.New("top-level value is not an object")

	jsonFence = regexp.MustCompile("(?is)```[ \t]*json[ \t]*\r?\n(.*?)\r?\n?```")
	anyFence  = regexp.MustCompile("(?s)```[^\n`]*\r?\n(.*?)\r?\n?```")
)

// DefaultChain 是默认的尝试顺序：带 json 标记的代码块、任意代码块、
// 第一个平衡的顶层花括号区间、从第一个 '{' 到最后一个 '}' 的区间。
var DefaultChain = []Attempt{
	{Name: "json_fence", Run: fromFence(jsonFence)},
	{Name: "fence", Run: fromFence(anyFence)},
	{Name: "balanced_braces", Run: fromBalancedBraces},
	{Name: "outer_braces", Run: fromOuterBraces},
}

// Extract 使用 DefaultChain 提取。
func Extract(text string) Result {
	return Run(text, DefaultChain...)
}

// Run 依次执行 attempts，返回第一个成功的结构化结果。
func Run(text string, attempts ...Attempt) Result {
	for _, a := range attempts {
		v, err := a.Run(text)
		if err != nil {
			continue
		}
		return Result{Kind: Structured, Payload: v, Raw: text, Strategy: a.Name}
	}
	return Result{Kind: Unstructured, Payload: payload.String(text), Raw: text}
}

// Explain 与 Run 相同，但额外返回每个失败尝试的原因，便于排查。
func Explain(text string, attempts ...Attempt) (Result, []error) {
	var failures []error
	for _, a := range attempts {
		v, err := a.Run(text)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", a.Name, err))
			continue
		}
		return Result{Kind: Structured, Payload: v, Raw: text, Strategy: a.Name}, failures
	}
	return Result{Kind: Unstructured, Payload: payload.String(text), Raw: text}, failures
}

func fromFence(re *regexp.Regexp) func(string) (payload.Value, error) {
	return func(text string) (payload.Value, error) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return payload.Value{}, errNoCandidate
		}
		return parseObject(m[1])
	}
}

// fromBalancedBraces 依次尝试每个顶层平衡的 '{...}' 区间，返回第一个能解析为对象的区间。
// 解析失败的区间整体跳过，不会返回其内部的片段。
func fromBalancedBraces(text string) (payload.Value, error) {
	lastErr := errNoCandidate
	for start := strings.IndexByte(text, '{'); start >= 0; {
		from := start + 1
		if end, ok := matchBrace(text, start); ok {
			v, err := parseObject(text[start : end+1])
			if err == nil {
				return v, nil
			}
			lastErr = err
			from = end + 1
		}
		next := strings.IndexByte(text[from:], '{')
		if next < 0 {
			break
		}
		start = from + next
	}
	return payload.Value{}, lastErr
}

func fromOuterBraces(text string) (payload.Value, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return payload.Value{}, errNoCandidate
	}
	return parseObject(text[start : end+1])
}

func parseObject(s string) (payload.Value, error) {
	v, err := payload.Parse([]byte(strings.TrimSpace(s)))
	if err != nil {
		return payload.Value{}, err
	}
	if v.Kind() != payload.KindMap {
		return payload.Value{}, errNotObject
	}
	return v, nil
}

func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
