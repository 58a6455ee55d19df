package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tagwarden/server/internal/apperr"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

// maxRequestBody caps the request body size for both protobuf and JSON
// payloads. The largest scanner message (a heartbeat) is well under 300
// bytes in either encoding.
const maxRequestBody = 4096

const protobufContentType = "application/x-protobuf"

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload. Scanner firmware sends "application/x-protobuf".
func isProtobuf(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return ct == protobufContentType ||
		ct == "application/protobuf" ||
		ct == "application/octet-stream"
}

func readProtoBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	if len(body) > maxRequestBody {
		return nil, apperr.New(apperr.CodeValidation, "request body too large")
	}
	return body, nil
}

// Field numbers of the scanner wire messages.
const (
	accessReqScanner protowire.Number = 1
	accessReqToken   protowire.Number = 2

	heartbeatScanner  protowire.Number = 1
	heartbeatFirmware protowire.Number = 2
	heartbeatUptime   protowire.Number = 3
	heartbeatIP       protowire.Number = 4
	heartbeatRSSI     protowire.Number = 5

	replyGranted    protowire.Number = 1
	replyUntil      protowire.Number = 2
	replyDenyReason protowire.Number = 3
	replyCode       protowire.Number = 4
	replyError      protowire.Number = 5
	replyTimestamp  protowire.Number = 6
	replyUser       protowire.Number = 7

	hbReplyOK         protowire.Number = 1
	hbReplyActive     protowire.Number = 2
	hbReplyScanner    protowire.Number = 3
	hbReplyServerTime protowire.Number = 4
)

// walkFields calls fn for every field in b. fn returns the number of bytes
// it consumed, or 0 to have the field skipped.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		used, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if used == 0 {
			used = protowire.ConsumeFieldValue(num, typ, b)
			if used < 0 {
				return protowire.ParseError(used)
			}
		}
		b = b[used:]
	}
	return nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("expected bytes wire type, got %d", typ)
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("expected varint wire type, got %d", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func decodeAccessRequest(b []byte) (types.AccessCheckRequest, error) {
	var req types.AccessCheckRequest
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case accessReqScanner:
			return consumeString(typ, b, &req.Scanner)
		case accessReqToken:
			return consumeString(typ, b, &req.Token)
		}
		return 0, nil
	})
	if err != nil {
		return types.AccessCheckRequest{}, apperr.Wrap(apperr.CodeValidation, err, "invalid protobuf body")
	}
	return req, nil
}

func decodeHeartbeat(b []byte) (types.HeartbeatRequest, error) {
	var req types.HeartbeatRequest
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case heartbeatScanner:
			return consumeString(typ, b, &req.Scanner)
		case heartbeatFirmware:
			return consumeString(typ, b, &req.FirmwareVersion)
		case heartbeatIP:
			return consumeString(typ, b, &req.IP)
		case heartbeatUptime:
			return consumeVarint(typ, b, &req.UptimeSeconds)
		case heartbeatRSSI:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			if err != nil {
				return 0, err
			}
			rssi := int(int32(v))
			req.RSSIDbm = &rssi
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return types.HeartbeatRequest{}, apperr.Wrap(apperr.CodeValidation, err, "invalid protobuf body")
	}
	return req, nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func encodeAccessReply(resp types.AccessCheckResponse) []byte {
	var b []byte
	b = appendBool(b, replyGranted, resp.Access.Granted)
	b = appendString(b, replyUntil, resp.Access.Until)
	b = appendString(b, replyDenyReason, resp.Access.DenyReason)
	b = appendString(b, replyCode, resp.Code)
	b = appendString(b, replyError, resp.Error)
	b = appendString(b, replyTimestamp, resp.Timestamp)
	if resp.Data != nil {
		b = appendString(b, replyUser, resp.Data.User)
	}
	return b
}

func encodeHeartbeatReply(resp types.HeartbeatResponse) []byte {
	var b []byte
	b = appendBool(b, hbReplyOK, resp.OK)
	b = appendBool(b, hbReplyActive, resp.Active)
	b = appendString(b, hbReplyScanner, resp.Scanner)
	b = appendString(b, hbReplyServerTime, resp.ServerTime)
	return b
}

func writeProto(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
