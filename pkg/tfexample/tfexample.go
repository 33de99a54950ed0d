// Package tfexample builds and parses serialized tf.train.Example protos,
// the per-image payload inside a TFRecord file.
//
// An Example is a map of feature name to one of three list types
// (bytes, float, int64). That is the entire schema, so we encode the
// wire format directly with protowire instead of vendoring generated
// stubs for the tensorflow/core/example tree.
package tfexample

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from tensorflow/core/example/{example,feature}.proto
const (
	fieldExampleFeatures = 1 // Example.features
	fieldFeaturesMap     = 1 // Features.feature (map<string, Feature>)
	fieldMapKey          = 1
	fieldMapValue        = 2
	fieldKindBytesList   = 1 // Feature.bytes_list
	fieldKindFloatList   = 2 // Feature.float_list
	fieldKindInt64List   = 3 // Feature.int64_list
	fieldListValue       = 1 // {Bytes,Float,Int64}List.value
)

type feature struct {
	bytes  [][]byte
	floats []float32
	ints   []int64
	kind   int
}

// Example is a mutable feature map. Marshal emits features in sorted key
// order, so byte output is deterministic for a given feature set.
type Example struct {
	features map[string]*feature
}

func New() *Example {
	return &Example{features: map[string]*feature{}}
}

// SetBytes stores a bytes_list feature.
func (e *Example) SetBytes(key string, values ...[]byte) {
	e.features[key] = &feature{kind: fieldKindBytesList, bytes: values}
}

// SetText stores strings as a bytes_list feature.
func (e *Example) SetText(key string, values ...string) {
	b := make([][]byte, len(values))
	for i, v := range values {
		b[i] = []byte(v)
	}
	e.SetBytes(key, b...)
}

// SetFloats stores a float_list feature.
func (e *Example) SetFloats(key string, values ...float32) {
	e.features[key] = &feature{kind: fieldKindFloatList, floats: values}
}

// SetInts stores an int64_list feature.
func (e *Example) SetInts(key string, values ...int64) {
	e.features[key] = &feature{kind: fieldKindInt64List, ints: values}
}

// Bytes returns a bytes_list feature.
func (e *Example) Bytes(key string) ([][]byte, bool) {
	f, ok := e.features[key]
	if !ok || f.kind != fieldKindBytesList {
		return nil, false
	}
	return f.bytes, true
}

// Text returns a bytes_list feature as strings.
func (e *Example) Text(key string) ([]string, bool) {
	b, ok := e.Bytes(key)
	if !ok {
		return nil, false
	}
	s := make([]string, len(b))
	for i, v := range b {
		s[i] = string(v)
	}
	return s, true
}

// Floats returns a float_list feature.
func (e *Example) Floats(key string) ([]float32, bool) {
	f, ok := e.features[key]
	if !ok || f.kind != fieldKindFloatList {
		return nil, false
	}
	return f.floats, true
}

// Ints returns an int64_list feature.
func (e *Example) Ints(key string) ([]int64, bool) {
	f, ok := e.features[key]
	if !ok || f.kind != fieldKindInt64List {
		return nil, false
	}
	return f.ints, true
}

// Keys returns all feature names, sorted.
func (e *Example) Keys() []string {
	keys := make([]string, 0, len(e.features))
	for k := range e.features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Example) NumFeatures() int {
	return len(e.features)
}

// Marshal serializes the Example to protobuf wire format.
func (e *Example) Marshal() []byte {
	var features []byte
	for _, key := range e.Keys() {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldMapKey, protowire.BytesType)
		entry = protowire.AppendString(entry, key)
		entry = protowire.AppendTag(entry, fieldMapValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, marshalFeature(e.features[key]))
		features = protowire.AppendTag(features, fieldFeaturesMap, protowire.BytesType)
		features = protowire.AppendBytes(features, entry)
	}
	var out []byte
	out = protowire.AppendTag(out, fieldExampleFeatures, protowire.BytesType)
	out = protowire.AppendBytes(out, features)
	return out
}

func marshalFeature(f *feature) []byte {
	var list []byte
	switch f.kind {
	case fieldKindBytesList:
		for _, v := range f.bytes {
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, v)
		}
	case fieldKindFloatList:
		// packed
		var packed []byte
		for _, v := range f.floats {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
		list = protowire.AppendBytes(list, packed)
	case fieldKindInt64List:
		var packed []byte
		for _, v := range f.ints {
			packed = protowire.AppendVarint(packed, uint64(v))
		}
		list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
		list = protowire.AppendBytes(list, packed)
	}
	var out []byte
	out = protowire.AppendTag(out, protowire.Number(f.kind), protowire.BytesType)
	out = protowire.AppendBytes(out, list)
	return out
}

// Unmarshal parses a serialized tf.train.Example.
func Unmarshal(data []byte) (*Example, error) {
	e := New()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if num == fieldExampleFeatures && typ == protowire.BytesType {
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			if err := e.unmarshalFeatures(msg); err != nil {
				return nil, err
			}
			data = data[n:]
		} else {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return e, nil
}

func (e *Example) unmarshalFeatures(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if num == fieldFeaturesMap && typ == protowire.BytesType {
			entry, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := e.unmarshalEntry(entry); err != nil {
				return err
			}
			data = data[n:]
		} else {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}

func (e *Example) unmarshalEntry(data []byte) error {
	var key string
	var f *feature
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == fieldMapKey && typ == protowire.BytesType:
			k, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			key = k
			data = data[n:]
		case num == fieldMapValue && typ == protowire.BytesType:
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			parsed, err := unmarshalFeature(msg)
			if err != nil {
				return err
			}
			f = parsed
			data = data[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	if f == nil {
		return fmt.Errorf("feature map entry '%v' has no value", key)
	}
	e.features[key] = f
	return nil
}

func unmarshalFeature(data []byte) (*feature, error) {
	f := &feature{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if typ != protowire.BytesType {
			return nil, fmt.Errorf("unexpected wire type %v in Feature", typ)
		}
		list, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		f.kind = int(num)
		switch num {
		case fieldKindBytesList:
			if err := f.parseBytesList(list); err != nil {
				return nil, err
			}
		case fieldKindFloatList:
			if err := f.parseFloatList(list); err != nil {
				return nil, err
			}
		case fieldKindInt64List:
			if err := f.parseInt64List(list); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown Feature kind %v", num)
		}
	}
	return f, nil
}

func (f *feature) parseBytesList(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if num != fieldListValue || typ != protowire.BytesType {
			return fmt.Errorf("unexpected field %v in BytesList", num)
		}
		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		f.bytes = append(f.bytes, v)
		data = data[n:]
	}
	return nil
}

func (f *feature) parseFloatList(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == fieldListValue && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if len(packed)%4 != 0 {
				return fmt.Errorf("packed FloatList length %v is not a multiple of 4", len(packed))
			}
			for len(packed) > 0 {
				bits, n := protowire.ConsumeFixed32(packed)
				if n < 0 {
					return protowire.ParseError(n)
				}
				f.floats = append(f.floats, math.Float32frombits(bits))
				packed = packed[n:]
			}
			data = data[n:]
		case num == fieldListValue && typ == protowire.Fixed32Type:
			bits, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			f.floats = append(f.floats, math.Float32frombits(bits))
			data = data[n:]
		default:
			return fmt.Errorf("unexpected field %v in FloatList", num)
		}
	}
	return nil
}

func (f *feature) parseInt64List(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == fieldListValue && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return protowire.ParseError(n)
				}
				f.ints = append(f.ints, int64(v))
				packed = packed[n:]
			}
			data = data[n:]
		case num == fieldListValue && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			f.ints = append(f.ints, int64(v))
			data = data[n:]
		default:
			return fmt.Errorf("unexpected field %v in Int64List", num)
		}
	}
	return nil
}
