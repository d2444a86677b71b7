package psd

import (
	"fmt"
	"math"
)

// Photoshop action descriptors are recursive keyed maps found inside
// tagged blocks, principally the 'TySh' text block. A descriptor is an
// optional Unicode name, a class-id token, a 32-bit property count and
// that many properties; each property is a key token, a 32-bit type tag
// and a value whose layout depends on the tag.

// Descriptor value type tags.
const (
	DescInteger   uint32 = 0x6C6F6E67 // 'long'
	DescDouble    uint32 = 0x646F7562 // 'doub'
	DescUnitFloat uint32 = 0x556E7446 // 'UntF'
	DescUnitValue uint32 = 0x556E7456 // 'UntV'
	DescBoolean   uint32 = 0x626F6F6C // 'bool'
	DescString    uint32 = 0x54455854 // 'TEXT'
	DescEnum      uint32 = 0x656E756D // 'enum'
	DescClass     uint32 = 0x74797065 // 'type'
	DescRawData   uint32 = 0x72617773 // 'raws'
	DescObject    uint32 = 0x4F626A20 // 'Obj '
	DescList      uint32 = 0x566C4C73 // 'VlLs'
	DescReference uint32 = 0x72656620 // 'ref '
)

// Reference sub-tokens.
const (
	refProp uint32 = 0x70726F70 // 'prop'
	refClss uint32 = 0x436C7373 // 'Clss'
	refEnmr uint32 = 0x456E6D72 // 'Enmr'
	refIdnt uint32 = 0x49646E74 // 'Idnt'
	refIndx uint32 = 0x696E6478 // 'indx'
	refName uint32 = 0x6E616D65 // 'name'
)

// Value is a tagged variant over the descriptor value types. Type selects
// which fields are meaningful:
//
//	long        Int
//	doub        Float
//	UntF, UntV  Unit + Float
//	bool        Bool
//	TEXT        Str (UTF-8)
//	enum        Str ("type:value")
//	type        Str (class token)
//	raws        Raw
//	Obj         Class + Object
//	VlLs        List
//	ref         nothing retained (structure validated and skipped)
//	other       Raw (length-prefixed preservation)
type Value struct {
	Type   uint32
	Int    int32
	Float  float64
	Unit   string
	Bool   bool
	Str    string
	Raw    []byte
	Class  string
	Object *Descriptor
	List   []Value
}

// Property is one key/value pair of a descriptor.
type Property struct {
	Key   string
	Value Value
}

// Descriptor is a parsed action descriptor.
type Descriptor struct {
	ClassID    string
	Properties []Property
}

// FindString searches the descriptor tree for a TEXT property with the
// given key and returns its UTF-8 contents.
func (d *Descriptor) FindString(key string) (string, bool) {
	for i := range d.Properties {
		p := &d.Properties[i]
		if p.Key == key && p.Value.Type == DescString {
			return p.Value.Str, true
		}
		if s, ok := findStringInValue(&p.Value, key); ok {
			return s, true
		}
	}
	return "", false
}

func findStringInValue(v *Value, key string) (string, bool) {
	if v.Object != nil {
		if s, ok := v.Object.FindString(key); ok {
			return s, true
		}
	}
	for i := range v.List {
		if s, ok := findStringInValue(&v.List[i], key); ok {
			return s, true
		}
	}
	return "", false
}

// FindRaw searches the descriptor tree for a property with the given key
// carrying raw bytes (raws or unknown-preserved values).
func (d *Descriptor) FindRaw(key string) ([]byte, bool) {
	for i := range d.Properties {
		p := &d.Properties[i]
		if p.Key == key && len(p.Value.Raw) > 0 {
			return p.Value.Raw, true
		}
		if b, ok := findRawInValue(&p.Value, key); ok {
			return b, true
		}
	}
	return nil, false
}

func findRawInValue(v *Value, key string) ([]byte, bool) {
	if v.Object != nil {
		if b, ok := v.Object.FindRaw(key); ok {
			return b, true
		}
	}
	for i := range v.List {
		if b, ok := findRawInValue(&v.List[i], key); ok {
			return b, true
		}
	}
	return nil, false
}

// parseUnicodeString reads a 32-bit character count plus UTF-16BE data
// and converts it to UTF-8.
func parseUnicodeString(s *Stream) (string, error) {
	charCount, err := s.ReadUint32()
	if err != nil {
		return "", err
	}
	if charCount == 0 {
		return "", nil
	}
	if charCount > maxDescriptorCount {
		return "", fmt.Errorf("unicode string length %d: %w", charCount, ErrCorruptData)
	}
	buf := make([]byte, charCount*2)
	if err := s.ReadExact(buf); err != nil {
		return "", err
	}
	return utf16beToUTF8(buf), nil
}

// skipUnicodeString consumes a Unicode string without converting it.
func skipUnicodeString(s *Stream) error {
	charCount, err := s.ReadUint32()
	if err != nil {
		return err
	}
	if charCount == 0 {
		return nil
	}
	if charCount > maxDescriptorCount {
		return fmt.Errorf("unicode string length %d: %w", charCount, ErrCorruptData)
	}
	return s.Skip(int64(charCount) * 2)
}

// parseClassID reads a class-id token: a 32-bit length, then either a
// 4-byte OSType (length zero) or that many ASCII bytes.
func parseClassID(s *Stream) (string, error) {
	length, err := s.ReadUint32()
	if err != nil {
		return "", err
	}
	if length == 0 {
		var ostype [4]byte
		if err := s.ReadExact(ostype[:]); err != nil {
			return "", err
		}
		return string(ostype[:]), nil
	}
	if length > maxDescriptorCount {
		return "", fmt.Errorf("class id length %d: %w", length, ErrCorruptData)
	}
	buf := make([]byte, length)
	if err := s.ReadExact(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ParseDescriptor parses an action descriptor at the current stream
// position. Descriptors appear in the wild both with and without a
// leading Unicode name; the named layout's name and class id are read
// first, and when either cannot be read the stream is rolled back and
// the class id is read in the bare layout. Only that header is retried:
// a failure while reading the property count or the properties is
// returned without trying the other layout.
func ParseDescriptor(s *Stream) (*Descriptor, error) {
	if s == nil {
		return nil, ErrNullPointer
	}
	start, err := s.Tell()
	if err != nil {
		return nil, err
	}

	desc := &Descriptor{}
	classID, err := func() (string, error) {
		if err := skipUnicodeString(s); err != nil {
			return "", err
		}
		return parseClassID(s)
	}()
	if err != nil {
		if err := s.Seek(start); err != nil {
			return nil, err
		}
		if classID, err = parseClassID(s); err != nil {
			return nil, err
		}
	}
	desc.ClassID = classID

	count, err := s.ReadUint32()
	if err != nil {
		return nil, err
	}
	if count > maxDescriptorCount {
		return nil, fmt.Errorf("descriptor property count %d: %w", count, ErrCorruptData)
	}

	desc.Properties = make([]Property, 0, count)
	for i := uint32(0); i < count; i++ {
		key, err := parseClassID(s)
		if err != nil {
			return nil, err
		}
		typeTag, err := s.ReadUint32()
		if err != nil {
			return nil, err
		}
		value, err := parseValue(s, typeTag)
		if err != nil {
			return nil, err
		}
		desc.Properties = append(desc.Properties, Property{Key: key, Value: value})
	}
	return desc, nil
}

// parseValue decodes one descriptor value for an already-read type tag.
func parseValue(s *Stream, typeTag uint32) (Value, error) {
	v := Value{Type: typeTag}
	switch typeTag {
	case DescInteger:
		n, err := s.ReadInt32()
		if err != nil {
			return v, err
		}
		v.Int = n

	case DescDouble:
		f, err := s.ReadFloat64()
		if err != nil {
			return v, err
		}
		v.Float = f

	case DescUnitFloat, DescUnitValue:
		// 4-byte unit code plus an 8-byte double. 'UntV' reuses the
		// 'UntF' layout; unrecognized unit codes are not rejected.
		var unit [4]byte
		if err := s.ReadExact(unit[:]); err != nil {
			return v, err
		}
		f, err := s.ReadFloat64()
		if err != nil {
			return v, err
		}
		v.Unit = string(unit[:])
		v.Float = f

	case DescBoolean:
		var b [1]byte
		if err := s.ReadExact(b[:]); err != nil {
			return v, err
		}
		v.Bool = b[0] != 0

	case DescString:
		str, err := parseUnicodeString(s)
		if err != nil {
			return v, err
		}
		v.Str = str

	case DescEnum:
		enumType, err := parseClassID(s)
		if err != nil {
			return v, err
		}
		enumValue, err := parseClassID(s)
		if err != nil {
			return v, err
		}
		v.Str = enumType + ":" + enumValue

	case DescClass:
		cid, err := parseClassID(s)
		if err != nil {
			return v, err
		}
		v.Str = cid

	case DescRawData:
		length, err := s.ReadUint32()
		if err != nil {
			return v, err
		}
		if length > maxRawValueLength {
			return v, fmt.Errorf("raws length %d: %w", length, ErrCorruptData)
		}
		v.Raw = make([]byte, length)
		if err := s.ReadExact(v.Raw); err != nil {
			return v, err
		}

	case DescObject:
		obj, class, err := parseObjectValue(s)
		if err != nil {
			return v, err
		}
		v.Class = class
		v.Object = obj

	case DescList:
		count, err := s.ReadUint32()
		if err != nil {
			return v, err
		}
		if count > maxDescriptorCount {
			return v, fmt.Errorf("list count %d: %w", count, ErrCorruptData)
		}
		v.List = make([]Value, 0, count)
		for i := uint32(0); i < count; i++ {
			itemTag, err := s.ReadUint32()
			if err != nil {
				return v, err
			}
			item, err := parseValue(s, itemTag)
			if err != nil {
				return v, err
			}
			v.List = append(v.List, item)
		}

	case DescReference:
		if err := parseReference(s); err != nil {
			return v, err
		}

	default:
		// Unknown tag: preserve as a 32-bit length plus raw bytes.
		length, err := s.ReadUint32()
		if err != nil {
			return v, err
		}
		if length > maxRawValueLength {
			return v, fmt.Errorf("unknown value length %d: %w", length, ErrCorruptData)
		}
		v.Raw = make([]byte, length)
		if err := s.ReadExact(v.Raw); err != nil {
			return v, err
		}
	}
	return v, nil
}

// parseObjectValue decodes an 'Obj ' value. Like the descriptor header,
// objects appear with either {Unicode name, class-id, descriptor} or
// {class-id, descriptor}; the first layout is attempted and rolled back.
func parseObjectValue(s *Stream) (*Descriptor, string, error) {
	start, err := s.Tell()
	if err != nil {
		return nil, "", err
	}

	class, obj, errA := func() (string, *Descriptor, error) {
		if err := skipUnicodeString(s); err != nil {
			return "", nil, err
		}
		class, err := parseClassID(s)
		if err != nil {
			return "", nil, err
		}
		obj, err := ParseDescriptor(s)
		if err != nil {
			return "", nil, err
		}
		return class, obj, nil
	}()
	if errA == nil {
		return obj, class, nil
	}

	if err := s.Seek(start); err != nil {
		return nil, "", err
	}
	class, err = parseClassID(s)
	if err != nil {
		return nil, "", err
	}
	obj, err = ParseDescriptor(s)
	if err != nil {
		return nil, "", err
	}
	return obj, class, nil
}

// parseReference validates and consumes a 'ref ' value. The reference
// structure is not retained; an unknown sub-token is an unsupported
// feature.
func parseReference(s *Stream) error {
	itemCount, err := s.ReadUint32()
	if err != nil {
		return err
	}
	if itemCount > maxDescriptorCount {
		return fmt.Errorf("reference item count %d: %w", itemCount, ErrCorruptData)
	}
	for i := uint32(0); i < itemCount; i++ {
		token, err := s.ReadUint32()
		if err != nil {
			return err
		}
		switch token {
		case refProp:
			if _, err := parseClassID(s); err != nil {
				return err
			}
			if _, err := parseClassID(s); err != nil {
				return err
			}
		case refClss:
			if _, err := parseClassID(s); err != nil {
				return err
			}
		case refEnmr:
			for k := 0; k < 3; k++ {
				if _, err := parseClassID(s); err != nil {
					return err
				}
			}
		case refIdnt, refIndx:
			if _, err := s.ReadUint32(); err != nil {
				return err
			}
		case refName:
			if err := skipUnicodeString(s); err != nil {
				return err
			}
		default:
			return fmt.Errorf("reference token %08x: %w", token, ErrUnsupportedFeature)
		}
	}
	return nil
}

// Float64 returns the numeric payload for integer, double and unit
// values, NaN otherwise.
func (v *Value) Float64() float64 {
	switch v.Type {
	case DescInteger:
		return float64(v.Int)
	case DescDouble, DescUnitFloat, DescUnitValue:
		return v.Float
	default:
		return math.NaN()
	}
}
