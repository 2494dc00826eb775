// Copyright 2022 The OpenZipkin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package zipkincore

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// Write serializes the endpoint as a Thrift struct.
func (p *Endpoint) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, "Endpoint"); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T write struct begin error: ", p), err)
	}
	if err := writeI32Field(ctx, oprot, "ipv4", 1, p.Ipv4); err != nil {
		return err
	}
	if err := writeI16Field(ctx, oprot, "port", 2, p.Port); err != nil {
		return err
	}
	if err := writeStringField(ctx, oprot, "service_name", 3, p.ServiceName); err != nil {
		return err
	}
	if p.Ipv6 != nil {
		if err := writeBinaryField(ctx, oprot, "ipv6", 4, p.Ipv6); err != nil {
			return err
		}
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return thrift.PrependError("write field stop error: ", err)
	}
	if err := oprot.WriteStructEnd(ctx); err != nil {
		return thrift.PrependError("write struct stop error: ", err)
	}
	return nil
}

// Read deserializes the endpoint from a Thrift struct.
func (p *Endpoint) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.I32:
			p.Ipv4, err = iprot.ReadI32(ctx)
		case id == 2 && typ == thrift.I16:
			p.Port, err = iprot.ReadI16(ctx)
		case id == 3 && typ == thrift.STRING:
			p.ServiceName, err = iprot.ReadString(ctx)
		case id == 4 && typ == thrift.STRING:
			p.Ipv6, err = iprot.ReadBinary(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// Write serializes the annotation as a Thrift struct.
func (p *Annotation) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, "Annotation"); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T write struct begin error: ", p), err)
	}
	if err := writeI64Field(ctx, oprot, "timestamp", 1, p.Timestamp); err != nil {
		return err
	}
	if err := writeStringField(ctx, oprot, "value", 2, p.Value); err != nil {
		return err
	}
	if p.Host != nil {
		if err := writeStructField(ctx, oprot, "host", 3, p.Host); err != nil {
			return err
		}
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return thrift.PrependError("write field stop error: ", err)
	}
	if err := oprot.WriteStructEnd(ctx); err != nil {
		return thrift.PrependError("write struct stop error: ", err)
	}
	return nil
}

// Read deserializes the annotation from a Thrift struct.
func (p *Annotation) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.I64:
			p.Timestamp, err = iprot.ReadI64(ctx)
		case id == 2 && typ == thrift.STRING:
			p.Value, err = iprot.ReadString(ctx)
		case id == 3 && typ == thrift.STRUCT:
			p.Host = &Endpoint{}
			err = p.Host.Read(ctx, iprot)
		default:
			return false, nil
		}
		return true, err
	})
}

// Write serializes the binary annotation as a Thrift struct.
func (p *BinaryAnnotation) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, "BinaryAnnotation"); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T write struct begin error: ", p), err)
	}
	if err := writeStringField(ctx, oprot, "key", 1, p.Key); err != nil {
		return err
	}
	if err := writeBinaryField(ctx, oprot, "value", 2, p.Value); err != nil {
		return err
	}
	if err := writeI32Field(ctx, oprot, "annotation_type", 3, int32(p.AnnotationType)); err != nil {
		return err
	}
	if p.Host != nil {
		if err := writeStructField(ctx, oprot, "host", 4, p.Host); err != nil {
			return err
		}
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return thrift.PrependError("write field stop error: ", err)
	}
	if err := oprot.WriteStructEnd(ctx); err != nil {
		return thrift.PrependError("write struct stop error: ", err)
	}
	return nil
}

// Read deserializes the binary annotation from a Thrift struct.
func (p *BinaryAnnotation) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			p.Key, err = iprot.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			p.Value, err = iprot.ReadBinary(ctx)
		case id == 3 && typ == thrift.I32:
			var v int32
			v, err = iprot.ReadI32(ctx)
			p.AnnotationType = AnnotationType(v)
		case id == 4 && typ == thrift.STRUCT:
			p.Host = &Endpoint{}
			err = p.Host.Read(ctx, iprot)
		default:
			return false, nil
		}
		return true, err
	})
}

// Write serializes the span as a Thrift struct. Optional fields are only
// written when set; debug is only written when true.
func (p *Span) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, "Span"); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T write struct begin error: ", p), err)
	}
	if err := writeI64Field(ctx, oprot, "trace_id", 1, p.TraceID); err != nil {
		return err
	}
	if err := writeStringField(ctx, oprot, "name", 3, p.Name); err != nil {
		return err
	}
	if err := writeI64Field(ctx, oprot, "id", 4, p.ID); err != nil {
		return err
	}
	if p.ParentID != nil {
		if err := writeI64Field(ctx, oprot, "parent_id", 5, *p.ParentID); err != nil {
			return err
		}
	}
	if err := oprot.WriteFieldBegin(ctx, "annotations", thrift.LIST, 6); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T write field begin error 6:annotations: ", p), err)
	}
	if err := oprot.WriteListBegin(ctx, thrift.STRUCT, len(p.Annotations)); err != nil {
		return thrift.PrependError("error writing list begin: ", err)
	}
	for _, a := range p.Annotations {
		if err := a.Write(ctx, oprot); err != nil {
			return thrift.PrependError(fmt.Sprintf("%T error writing struct: ", a), err)
		}
	}
	if err := oprot.WriteListEnd(ctx); err != nil {
		return thrift.PrependError("error writing list end: ", err)
	}
	if err := oprot.WriteFieldEnd(ctx); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T write field end error 6:annotations: ", p), err)
	}
	if err := oprot.WriteFieldBegin(ctx, "binary_annotations", thrift.LIST, 8); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T write field begin error 8:binary_annotations: ", p), err)
	}
	if err := oprot.WriteListBegin(ctx, thrift.STRUCT, len(p.BinaryAnnotations)); err != nil {
		return thrift.PrependError("error writing list begin: ", err)
	}
	for _, a := range p.BinaryAnnotations {
		if err := a.Write(ctx, oprot); err != nil {
			return thrift.PrependError(fmt.Sprintf("%T error writing struct: ", a), err)
		}
	}
	if err := oprot.WriteListEnd(ctx); err != nil {
		return thrift.PrependError("error writing list end: ", err)
	}
	if err := oprot.WriteFieldEnd(ctx); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T write field end error 8:binary_annotations: ", p), err)
	}
	if p.Debug {
		if err := oprot.WriteFieldBegin(ctx, "debug", thrift.BOOL, 9); err != nil {
			return thrift.PrependError(fmt.Sprintf("%T write field begin error 9:debug: ", p), err)
		}
		if err := oprot.WriteBool(ctx, p.Debug); err != nil {
			return thrift.PrependError(fmt.Sprintf("%T.debug (9) field write error: ", p), err)
		}
		if err := oprot.WriteFieldEnd(ctx); err != nil {
			return thrift.PrependError(fmt.Sprintf("%T write field end error 9:debug: ", p), err)
		}
	}
	if p.Timestamp != nil {
		if err := writeI64Field(ctx, oprot, "timestamp", 10, *p.Timestamp); err != nil {
			return err
		}
	}
	if p.Duration != nil {
		if err := writeI64Field(ctx, oprot, "duration", 11, *p.Duration); err != nil {
			return err
		}
	}
	if p.TraceIDHigh != nil {
		if err := writeI64Field(ctx, oprot, "trace_id_high", 12, *p.TraceIDHigh); err != nil {
			return err
		}
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return thrift.PrependError("write field stop error: ", err)
	}
	if err := oprot.WriteStructEnd(ctx); err != nil {
		return thrift.PrependError("write struct stop error: ", err)
	}
	return nil
}

// Read deserializes the span from a Thrift struct.
func (p *Span) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.I64:
			p.TraceID, err = iprot.ReadI64(ctx)
		case id == 3 && typ == thrift.STRING:
			p.Name, err = iprot.ReadString(ctx)
		case id == 4 && typ == thrift.I64:
			p.ID, err = iprot.ReadI64(ctx)
		case id == 5 && typ == thrift.I64:
			p.ParentID, err = readI64Ptr(ctx, iprot)
		case id == 6 && typ == thrift.LIST:
			err = readStructList(ctx, iprot, func() error {
				a := &Annotation{}
				if err := a.Read(ctx, iprot); err != nil {
					return err
				}
				p.Annotations = append(p.Annotations, a)
				return nil
			})
		case id == 8 && typ == thrift.LIST:
			err = readStructList(ctx, iprot, func() error {
				a := &BinaryAnnotation{}
				if err := a.Read(ctx, iprot); err != nil {
					return err
				}
				p.BinaryAnnotations = append(p.BinaryAnnotations, a)
				return nil
			})
		case id == 9 && typ == thrift.BOOL:
			p.Debug, err = iprot.ReadBool(ctx)
		case id == 10 && typ == thrift.I64:
			p.Timestamp, err = readI64Ptr(ctx, iprot)
		case id == 11 && typ == thrift.I64:
			p.Duration, err = readI64Ptr(ctx, iprot)
		case id == 12 && typ == thrift.I64:
			p.TraceIDHigh, err = readI64Ptr(ctx, iprot)
		default:
			return false, nil
		}
		return true, err
	})
}

func writeI16Field(ctx context.Context, oprot thrift.TProtocol, name string, id int16, v int16) error {
	if err := oprot.WriteFieldBegin(ctx, name, thrift.I16, id); err != nil {
		return thrift.PrependError(fmt.Sprintf("write field begin error %d:%s: ", id, name), err)
	}
	if err := oprot.WriteI16(ctx, v); err != nil {
		return thrift.PrependError(fmt.Sprintf("%s (%d) field write error: ", name, id), err)
	}
	return oprot.WriteFieldEnd(ctx)
}

func writeI32Field(ctx context.Context, oprot thrift.TProtocol, name string, id int16, v int32) error {
	if err := oprot.WriteFieldBegin(ctx, name, thrift.I32, id); err != nil {
		return thrift.PrependError(fmt.Sprintf("write field begin error %d:%s: ", id, name), err)
	}
	if err := oprot.WriteI32(ctx, v); err != nil {
		return thrift.PrependError(fmt.Sprintf("%s (%d) field write error: ", name, id), err)
	}
	return oprot.WriteFieldEnd(ctx)
}

func writeI64Field(ctx context.Context, oprot thrift.TProtocol, name string, id int16, v int64) error {
	if err := oprot.WriteFieldBegin(ctx, name, thrift.I64, id); err != nil {
		return thrift.PrependError(fmt.Sprintf("write field begin error %d:%s: ", id, name), err)
	}
	if err := oprot.WriteI64(ctx, v); err != nil {
		return thrift.PrependError(fmt.Sprintf("%s (%d) field write error: ", name, id), err)
	}
	return oprot.WriteFieldEnd(ctx)
}

func writeStringField(ctx context.Context, oprot thrift.TProtocol, name string, id int16, v string) error {
	if err := oprot.WriteFieldBegin(ctx, name, thrift.STRING, id); err != nil {
		return thrift.PrependError(fmt.Sprintf("write field begin error %d:%s: ", id, name), err)
	}
	if err := oprot.WriteString(ctx, v); err != nil {
		return thrift.PrependError(fmt.Sprintf("%s (%d) field write error: ", name, id), err)
	}
	return oprot.WriteFieldEnd(ctx)
}

func writeBinaryField(ctx context.Context, oprot thrift.TProtocol, name string, id int16, v []byte) error {
	if err := oprot.WriteFieldBegin(ctx, name, thrift.STRING, id); err != nil {
		return thrift.PrependError(fmt.Sprintf("write field begin error %d:%s: ", id, name), err)
	}
	if err := oprot.WriteBinary(ctx, v); err != nil {
		return thrift.PrependError(fmt.Sprintf("%s (%d) field write error: ", name, id), err)
	}
	return oprot.WriteFieldEnd(ctx)
}

func writeStructField(ctx context.Context, oprot thrift.TProtocol, name string, id int16, v thrift.TStruct) error {
	if err := oprot.WriteFieldBegin(ctx, name, thrift.STRUCT, id); err != nil {
		return thrift.PrependError(fmt.Sprintf("write field begin error %d:%s: ", id, name), err)
	}
	if err := v.Write(ctx, oprot); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T error writing struct: ", v), err)
	}
	return oprot.WriteFieldEnd(ctx)
}

func readI64Ptr(ctx context.Context, iprot thrift.TProtocol) (*int64, error) {
	v, err := iprot.ReadI64(ctx)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readStructList(ctx context.Context, iprot thrift.TProtocol, readElem func() error) error {
	_, size, err := iprot.ReadListBegin(ctx)
	if err != nil {
		return thrift.PrependError("error reading list begin: ", err)
	}
	for i := 0; i < size; i++ {
		if err := readElem(); err != nil {
			return err
		}
	}
	if err := iprot.ReadListEnd(ctx); err != nil {
		return thrift.PrependError("error reading list end: ", err)
	}
	return nil
}

// readStruct walks the fields of a struct, handing each one to readField.
// Fields readField does not claim are skipped.
func readStruct(ctx context.Context, iprot thrift.TProtocol, p interface{}, readField func(id int16, typ thrift.TType) (bool, error)) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T read error: ", p), err)
	}
	for {
		_, fieldTypeID, fieldID, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return thrift.PrependError(fmt.Sprintf("%T field %d read error: ", p, fieldID), err)
		}
		if fieldTypeID == thrift.STOP {
			break
		}
		handled, err := readField(fieldID, fieldTypeID)
		if err != nil {
			return thrift.PrependError(fmt.Sprintf("%T field %d read error: ", p, fieldID), err)
		}
		if !handled {
			if err := iprot.Skip(ctx, fieldTypeID); err != nil {
				return err
			}
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	if err := iprot.ReadStructEnd(ctx); err != nil {
		return thrift.PrependError(fmt.Sprintf("%T read struct end error: ", p), err)
	}
	return nil
}
