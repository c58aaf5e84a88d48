package endpoint

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
)

const lookupExtension = "lookup"

// lookupReply is the key lookup service's answer.
type lookupReply struct {
	Status      string
	Message     string
	KeyID       string
	IP          string
	Port        string
	LocalIPs    []string
	HTTPSPort   string
	HardwareIDs []string
}

// lookup asks the lookup service where the key's server lives and replaces
// the address portion of the state with the reply.
func (r *Resolver) lookup(ctx context.Context) error {
	r.log.Debug().Msg("looking up access key")

	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	target := r.lookupURL + "?" + url.Values{"id": {r.key}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return &mcwserr.TransportError{Extension: lookupExtension, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &mcwserr.TransportError{Extension: lookupExtension, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &mcwserr.TransportError{Extension: lookupExtension, StatusCode: resp.StatusCode}
	}

	reply, err := parseLookupReply(payload)
	if err != nil {
		return err
	}
	if strings.EqualFold(reply.Status, "Error") {
		r.log.Error().Str("message", reply.Message).Msg("access key could not be resolved")
		return &mcwserr.UnresolvableKeyError{Key: r.key, Message: reply.Message}
	}
	if reply.IP == "" || reply.Port == "" {
		return &mcwserr.DecodeError{What: "lookup reply", Err: errors.New("missing ip or port")}
	}

	r.state.KeyID = reply.KeyID
	r.state.Remote = reply.IP
	r.state.Port = reply.Port
	r.state.HTTPSPort = reply.HTTPSPort
	r.state.LocalCandidates = reply.LocalIPs
	r.state.HardwareIDs = reply.HardwareIDs
	r.state.LastResolvedAt = r.now()

	r.log.Debug().
		Str("key_id", reply.KeyID).
		Str("remote", reply.IP).
		Strs("local_candidates", reply.LocalIPs).
		Msg("access key resolved")
	return nil
}

func parseLookupReply(payload []byte) (lookupReply, error) {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	var reply lookupReply
	sawRoot := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return lookupReply{}, &mcwserr.DecodeError{What: "lookup reply", Err: err}
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			sawRoot = true
			for _, attr := range se.Attr {
				if attr.Name.Local == "Status" {
					reply.Status = attr.Value
				}
			}
			continue
		}

		var value string
		if err := decoder.DecodeElement(&value, &se); err != nil {
			return lookupReply{}, &mcwserr.DecodeError{What: "lookup reply", Err: err}
		}
		value = strings.TrimSpace(value)

		switch se.Name.Local {
		case "msg":
			reply.Message = value
		case "keyid":
			reply.KeyID = value
		case "ip":
			reply.IP = value
		case "port":
			reply.Port = value
		case "localiplist":
			reply.LocalIPs = splitCSV(value)
		case "https_port":
			reply.HTTPSPort = value
		case "macaddresslist":
			reply.HardwareIDs = splitCSV(value)
		}
	}

	if !sawRoot {
		return lookupReply{}, &mcwserr.DecodeError{What: "lookup reply", Err: errors.New("empty document")}
	}
	return reply, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
