package pci

import "github.com/rina-go/rinad/pkg/dtconst"

// OffsetTable is the per-DIF layout of PCI field positions, built once when
// an IPCP is configured with a dtconst.DataTransferConstants profile and
// reused for every PDU that DIF exchanges. It mirrors
// pci_offset_table_create: a single pass over the field enum, accumulating
// a running offset and resetting it to the post-base-header offset at each
// PDU type's size marker.
type OffsetTable struct {
	dt     dtconst.DataTransferConstants
	offset [fieldIndexMax]int
}

// NewOffsetTable builds the offset table for dt. dt is assumed already
// defaulted and validated; a zero-width field produces an offset table
// that is internally consistent but useless (every field collapses to the
// same position), so callers should validate dt first.
func NewOffsetTable(dt dtconst.DataTransferConstants) *OffsetTable {
	t := &OffsetTable{dt: dt}

	var offset, baseOffset int
	for i := fieldIndex(0); i < fieldIndexMax; i++ {
		t.offset[i] = offset
		switch i {
		case fieldBaseVersion:
			offset += versionSize
		case fieldBaseDstAddr, fieldBaseSrcAddr:
			offset += int(dt.AddressWidth)
		case fieldBaseQosID:
			offset += int(dt.QosIDWidth)
		case fieldBaseDstCEP, fieldBaseSrcCEP:
			offset += int(dt.CepIDWidth)
		case fieldBaseType:
			offset += typeSize
		case fieldBaseFlags:
			offset += flagsSize
		case fieldBaseLen:
			offset += int(dt.LengthWidth)
			baseOffset = offset

		case fieldDTMgmtSN,
			fieldFCNewRWE, fieldFCMyLWE, fieldFCMyRWE,
			fieldCACKNewLWE, fieldCACKNewRWE, fieldCACKMyLWE, fieldCACKMyRWE,
			fieldACKFCAckedSN, fieldACKAckedSN,
			fieldACKFCNewLWE, fieldACKFCNewRWE, fieldACKFCMyLWE, fieldACKFCMyRWE,
			fieldRvousNewLWE, fieldRvousNewRWE, fieldRvousMyLWE, fieldRvousMyRWE:
			offset += int(dt.SeqNumWidth)

		case fieldCtrlSN:
			offset += int(dt.CtrlSeqNumWidth)
			baseOffset += int(dt.CtrlSeqNumWidth)

		case fieldCACKLastCSNRcvd, fieldACKFCLastCSNRcvd, fieldRvousLastCSNRcvd:
			offset += int(dt.CtrlSeqNumWidth)

		case fieldFCSndrRate, fieldCACKSndrRate, fieldACKFCSndrRate, fieldRvousSndrRate:
			offset += int(dt.RateWidth)

		case fieldFCTimeFrame, fieldCACKTimeFrame, fieldACKFCTimeFrame, fieldRvousTimeFrame:
			offset += int(dt.FrameWidth)

		case fieldDTMgmtSize, fieldFCSize, fieldCACKSize, fieldACKSize, fieldRvousSize, fieldACKFCSize:
			offset = baseOffset
		}
	}
	return t
}

// Size returns the precomputed total header size for a PDU type, i.e. the
// terminal-size index for that type's layout. It mirrors
// pci_calculate_size. NACK and NACK+FC carry no fields of their own — they
// reuse the ACK and ACK+FC layouts, distinguished only by the type byte, the
// same way populate_ctrl_pci's NACK branch reuses pci_control_ack_seq_num_set.
func (t *OffsetTable) Size(pduType PDUType) (int, error) {
	switch pduType {
	case PDUTypeDT, PDUTypeMgmt:
		return t.offset[fieldDTMgmtSize], nil
	case PDUTypeFC:
		return t.offset[fieldFCSize], nil
	case PDUTypeACK, PDUTypeNACK:
		return t.offset[fieldACKSize], nil
	case PDUTypeACKAndFC, PDUTypeNACKAndFC:
		return t.offset[fieldACKFCSize], nil
	case PDUTypeCACK:
		return t.offset[fieldCACKSize], nil
	case PDUTypeRendezvous:
		return t.offset[fieldRvousSize], nil
	default:
		return -1, ErrUnknownPDUType
	}
}
