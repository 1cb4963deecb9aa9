package wire

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
	"google.golang.org/grpc/encoding"
)

// CodecName is registered with grpc's encoding package and advertised
// in the gRPC content-subtype, replacing the default "proto" codec: the
// control contract has no .proto schema, so messages are reflected
// straight onto XDR the way the NFS handlers XDR-encode RFC 1813
// arguments without a schema compiler either.
const CodecName = "xdr"

type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, fmt.Errorf("wire: xdr marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	if _, err := xdr.Unmarshal(bytes.NewReader(data), v); err != nil {
		return fmt.Errorf("wire: xdr unmarshal: %w", err)
	}
	return nil
}

func (codec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(codec{})
}
