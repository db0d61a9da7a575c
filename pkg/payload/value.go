// Package payload 定义了 AI 返回的结构化内容的树形表示。
//
// Value 是一个带标签的变体类型（string | number | boolean | null | list | mapping），
// 映射保留键的出现顺序，方便渲染时按原始顺序追加未知的章节。
package payload

import "encoding/json"

// Kind 标识 Value 的具体变体。
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// String 返回 Kind 的可读名称。
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindList:
		return "list"
	case KindMap:
		return "mapping"
	}
	return "unknown"
}

// Field 是映射中的一个键值对。
type Field struct {
	Key   string
	Value Value
}

// Value 是结构化内容树中的一个节点。零值表示 null。
type Value struct {
	kind   Kind
	str    string
	num    json.Number
	b      bool
	list   []Value
	fields []Field
}

// Null 返回 null 值。
func Null() Value { return Value{} }

// String 返回字符串值。
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number 返回数字值，保留原始字面量。
func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }

// Bool 返回布尔值。
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List 返回有序列表。
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Map 返回映射，重复的键保留第一次出现的位置和最后一次出现的值。
func Map(fields ...Field) Value {
	out := make([]Field, 0, len(fields))
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		if i, ok := index[f.Key]; ok {
			out[i].Value = f.Value
			continue
		}
		index[f.Key] = len(out)
		out = append(out, f)
	}
	return Value{kind: KindMap, fields: out}
}

// Kind 返回变体类型。
func (v Value) Kind() Kind { return v.kind }

// IsNull 判断是否为 null。
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty 判断是否为 null、空列表或空映射。
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindList:
		return len(v.list) == 0
	case KindMap:
		return len(v.fields) == 0
	}
	return false
}

// Str 返回字符串内容，非字符串返回空串。
func (v Value) Str() string { return v.str }

// Num 返回数字字面量，非数字返回空串。
func (v Value) Num() json.Number { return v.num }

// Boolean 返回布尔内容。
func (v Value) Boolean() bool { return v.b }

// Items 返回列表元素。
func (v Value) Items() []Value { return v.list }

// Fields 返回映射的键值对，按出现顺序排列。
func (v Value) Fields() []Field { return v.fields }

// Keys 返回映射的键，按出现顺序排列。
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.fields))
	for _, f := range v.fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Get 按键查找映射中的值。
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Visitor 为每种变体提供一个处理方法。实现者必须覆盖全部变体，
// 新增变体时编译器会指出所有未处理的实现。
type Visitor[T any] interface {
	VisitNull() T
	VisitString(s string) T
	VisitNumber(n json.Number) T
	VisitBool(b bool) T
	VisitList(items []Value) T
	VisitMap(fields []Field) T
}

// Visit 将 v 分派给 visitor 中对应的方法。
func Visit[T any](v Value, visitor Visitor[T]) T {
	switch v.kind {
	case KindString:
		return visitor.VisitString(v.str)
	case KindNumber:
		return visitor.VisitNumber(v.num)
	case KindBool:
		return visitor.VisitBool(v.b)
	case KindList:
		return visitor.VisitList(v.list)
	case KindMap:
		return visitor.VisitMap(v.fields)
	default:
		return visitor.VisitNull()
	}
}

// Equal 深度比较两个值，映射按键比较，与键顺序无关。
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindString:
		return a.str == b.str
	case KindNumber:
		return numbersEqual(a.num, b.num)
	case KindBool:
		return a.b == b.b
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for _, f := range a.fields {
			other, ok := b.Get(f.Key)
			if !ok || !Equal(f.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	fa, errA := a.Float64()
	fb, errB := b.Float64()
	return errA == nil && errB == nil && fa == fb
}
