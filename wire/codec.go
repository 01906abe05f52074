// Package wire defines the binary envelopes exchanged with ledger nodes.
//
// Messages use the protobuf wire format, written and read field by field with
// protowire so no generated code is needed. Decoders skip unknown fields.
package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/ledger/model"
)

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// field is one decoded top-level field. Only the value matching typ is set.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// walk calls fn for every varint or length-delimited field in b and skips
// everything else.
func walk(msg string, b []byte, fn func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return decodeErr(msg, protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return decodeErr(msg, protowire.ParseError(m))
			}
			f.varint = v
			n = m
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return decodeErr(msg, protowire.ParseError(m))
			}
			f.bytes = v
			n = m
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return decodeErr(msg, protowire.ParseError(m))
			}
			b = b[m:]
			continue
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func decodeErr(msg string, cause error) error {
	return model.Wrap(model.CodeDecodeError, "decode "+msg, cause)
}

func wrongType(msg string, f field) error {
	return model.Errorf(model.CodeDecodeError, "decode %s: field %d has unexpected wire type %d", msg, f.num, f.typ)
}

// AppendEntityID appends id as a nested {shard=1, realm=2, num=3} message.
func AppendEntityID(b []byte, num protowire.Number, id model.EntityID) []byte {
	var inner []byte
	inner = appendVarintField(inner, 1, id.Shard)
	inner = appendVarintField(inner, 2, id.Realm)
	inner = appendVarintField(inner, 3, id.Num)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

// DecodeEntityID reads the nested form written by AppendEntityID.
func DecodeEntityID(b []byte) (model.EntityID, error) {
	var id model.EntityID
	err := walk("entity id", b, func(f field) error {
		if f.typ != protowire.VarintType {
			return nil
		}
		switch f.num {
		case 1:
			id.Shard = f.varint
		case 2:
			id.Realm = f.varint
		case 3:
			id.Num = f.varint
		}
		return nil
	})
	return id, err
}
