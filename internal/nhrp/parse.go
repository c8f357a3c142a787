package nhrp

import (
	"nhrpd/internal/errs"
	"nhrpd/internal/wire"
)

// Parse decodes buf into an owned NhrpMessage. It is total on well-formed
// input and surfaces Truncated/NotImplemented/Invalid on malformed input.
func Parse(buf []byte) (*NhrpMessage, error) {
	hv, err := wire.NewHeaderViewChecked(buf)
	if err != nil {
		return nil, err
	}

	pktsize := int(hv.PktSize())
	if pktsize < wire.HeaderLen || pktsize > len(buf) {
		return nil, errs.Newf(errs.Truncated, "pktsize %d out of range for %d-byte buffer", pktsize, len(buf))
	}

	extOffset := int(hv.ExtOffset())
	if extOffset != 0 && (extOffset < wire.HeaderLen || extOffset > pktsize) {
		return nil, errs.Newf(errs.Invalid, "extoffset %d out of range", extOffset)
	}

	opEnd := pktsize
	if extOffset != 0 {
		opEnd = extOffset
	}
	opWindow := buf[wire.HeaderLen:opEnd]

	opType := NhrpOp(hv.OpType())
	op, err := parseOperation(opType, opWindow)
	if err != nil {
		return nil, err
	}

	var exts []Extension
	if extOffset != 0 {
		it := wire.NewExtIter(buf[extOffset:pktsize])
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			exts = append(exts, decodeExtension(v))
		}
	}

	header := FixedHeader{
		AFN:       hv.AFN(),
		ProtoType: ClassifyProtocolType(hv.ProtoTypeRaw()),
		HopCount:  hv.HopCount(),
		PktSize:   hv.PktSize(),
		Checksum:  hv.Checksum(),
		ExtOffset: hv.ExtOffset(),
		Version:   hv.Version(),
		OpType:    opType,
	}
	copy(header.Snap[:], hv.Snap())

	return &NhrpMessage{Header: header, Op: op, Extensions: exts}, nil
}

// parseOperation dispatches on optype to the matching operation parser.
// Operation types 7 (ErrorIndication) and unknown values are rejected with
// NotImplemented.
func parseOperation(op NhrpOp, window []byte) (Operation, error) {
	ov, err := wire.NewOperationViewChecked(window)
	if err != nil {
		return nil, err
	}
	common := decodeCommonHeader(ov)
	rest := window[ov.Len():]

	switch op {
	case OpResolutionRequest:
		return parseResolutionRequest(common, rest)
	case OpResolutionReply:
		cies, err := parseCIEsStrict(rest)
		if err != nil {
			return nil, err
		}
		return &ResolutionReply{CommonHeader: common, CIEs: cies}, nil
	case OpRegistrationRequest:
		cies, err := parseCIEsStrict(rest)
		if err != nil {
			return nil, err
		}
		return &RegistrationRequest{CommonHeader: common, CIEs: cies}, nil
	case OpRegistrationReply:
		cv, err := wire.NewCIEViewChecked(rest)
		if err != nil {
			return nil, err
		}
		return &RegistrationReply{CommonHeader: common, CIE: decodeCIE(cv)}, nil
	case OpPurgeRequest:
		cies, err := parseCIEsStrict(rest)
		if err != nil {
			return nil, err
		}
		return &PurgeRequest{CommonHeader: common, CIEs: cies}, nil
	case OpPurgeReply:
		cies, err := parseCIEsStrict(rest)
		if err != nil {
			return nil, err
		}
		return &PurgeReply{CommonHeader: common, CIEs: cies}, nil
	default:
		// ErrorIndication (7) and any Other optype: not served by this core.
		return nil, errs.Newf(errs.NotImplemented, "operation type %d not implemented", uint8(op))
	}
}

// parseResolutionRequest treats a truncated trailing CIE as "no CIE"
// rather than an error — the one deliberate exception to "all other
// operations require complete CIEs".
func parseResolutionRequest(common CommonHeader, rest []byte) (Operation, error) {
	if len(rest) == 0 {
		return &ResolutionRequest{CommonHeader: common, CIE: nil}, nil
	}
	cv, err := wire.NewCIEViewChecked(rest)
	if err != nil {
		return &ResolutionRequest{CommonHeader: common, CIE: nil}, nil
	}
	cie := decodeCIE(cv)
	return &ResolutionRequest{CommonHeader: common, CIE: &cie}, nil
}

// parseCIEsStrict consumes rest as a vector of complete CIEs. Any
// truncated or malformed entry is an error — it is never silently
// dropped the way it is for ResolutionRequest.
func parseCIEsStrict(rest []byte) ([]CIE, error) {
	var cies []CIE
	it := wire.NewCIEIter(rest)
	consumed := 0
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		consumed += v.Len()
		cies = append(cies, decodeCIE(v))
	}
	if consumed != len(rest) {
		return nil, errs.Newf(errs.Truncated, "CIE list left %d trailing bytes unparsed", len(rest)-consumed)
	}
	return cies, nil
}
