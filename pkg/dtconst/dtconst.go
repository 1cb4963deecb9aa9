// Package dtconst carries the per-DIF Data-Transfer Constants profile: the
// field widths, size limits and behavioral flags that the PCI codec, DU
// buffer, delimiter and EFCP container are all parameterised by. It has no
// dependency on the daemon's Viper-backed configuration loader so that the
// wire-format packages (pci, du, connection, dtp, dtcp, efcp) can depend on
// the profile type alone.
package dtconst

import "github.com/rina-go/rinad/internal/bytesize"

// DataTransferConstants is the per-DIF profile of field widths, size limits
// and behavioral flags. Once an IPCP joins a DIF it is fixed for the
// lifetime of that IPCP; it is never mutated in place, only replaced
// wholesale by UpdateDIFConfig.
type DataTransferConstants struct {
	// AddressWidth is the width in bytes of source/destination addresses.
	AddressWidth uint8 `mapstructure:"address_width" yaml:"address_width" validate:"required,oneof=1 2 4"`

	// QosIDWidth is the width in bytes of the qos-id field.
	QosIDWidth uint8 `mapstructure:"qos_id_width" yaml:"qos_id_width" validate:"required,oneof=1 2 4"`

	// CepIDWidth is the width in bytes of connection-endpoint-id fields.
	CepIDWidth uint8 `mapstructure:"cep_id_width" yaml:"cep_id_width" validate:"required,oneof=1 2 4"`

	// PortIDWidth is the width in bytes of the port-id namespace. Port-ids
	// themselves never appear on the wire; this bounds the PIDM allocator.
	PortIDWidth uint8 `mapstructure:"port_id_width" yaml:"port_id_width" validate:"required,oneof=1 2 4"`

	// LengthWidth is the width in bytes of the PDU length field.
	LengthWidth uint8 `mapstructure:"length_width" yaml:"length_width" validate:"required,oneof=1 2 4"`

	// SeqNumWidth is the width in bytes of data sequence number fields.
	SeqNumWidth uint8 `mapstructure:"seq_num_width" yaml:"seq_num_width" validate:"required,oneof=1 2 4 8"`

	// CtrlSeqNumWidth is the width in bytes of control sequence number
	// fields.
	CtrlSeqNumWidth uint8 `mapstructure:"ctrl_seq_num_width" yaml:"ctrl_seq_num_width" validate:"required,oneof=1 2 4 8"`

	// RateWidth is the width in bytes of rate-based flow control fields.
	RateWidth uint8 `mapstructure:"rate_width" yaml:"rate_width" validate:"required,oneof=1 2 4"`

	// FrameWidth is the width in bytes of the rate-based time-frame field.
	FrameWidth uint8 `mapstructure:"frame_width" yaml:"frame_width" validate:"required,oneof=1 2 4"`

	// MaxPDUSize is the largest PCI-plus-payload size this DIF allows.
	// Accepts human-readable sizes ("1500B", "64Ki") via bytesize.ByteSize.
	MaxPDUSize bytesize.ByteSize `mapstructure:"max_pdu_size" yaml:"max_pdu_size" validate:"required"`

	// MaxSDUSize is the largest user-facing message size this DIF allows
	// when message-boundary semantics are in effect.
	MaxSDUSize bytesize.ByteSize `mapstructure:"max_sdu_size" yaml:"max_sdu_size" validate:"required"`

	// MaxPDULifeMs (MPL) bounds how long a PDU may survive in the network,
	// in milliseconds; used to size the R-timer.
	MaxPDULifeMs uint32 `mapstructure:"max_pdu_life_ms" yaml:"max_pdu_life_ms" validate:"required,gt=0"`

	// DIFIntegrity enables end-to-end integrity checking at the EFCP layer.
	DIFIntegrity bool `mapstructure:"dif_integrity" yaml:"dif_integrity"`

	// DIFFragmentation enables the delimiter's fragment/reassemble path.
	DIFFragmentation bool `mapstructure:"dif_fragmentation" yaml:"dif_fragmentation"`

	// DIFConcatenation enables packing multiple SDUs into a single PDU.
	DIFConcatenation bool `mapstructure:"dif_concatenation" yaml:"dif_concatenation"`
}

// MaxFieldValue returns the largest representable value for a field of the
// given width in bytes, i.e. 2^(8*width) - 1.
func MaxFieldValue(width uint8) uint64 {
	if width >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * width)) - 1
}

// ApplyDefaults fills in the widths and limits IRATI's default DIF profile
// uses, so a zero-value DataTransferConstants is usable out of the box for
// loopback testing.
func ApplyDefaults(cfg *DataTransferConstants) {
	if cfg.AddressWidth == 0 {
		cfg.AddressWidth = 2
	}
	if cfg.QosIDWidth == 0 {
		cfg.QosIDWidth = 1
	}
	if cfg.CepIDWidth == 0 {
		cfg.CepIDWidth = 2
	}
	if cfg.PortIDWidth == 0 {
		cfg.PortIDWidth = 2
	}
	if cfg.LengthWidth == 0 {
		cfg.LengthWidth = 2
	}
	if cfg.SeqNumWidth == 0 {
		cfg.SeqNumWidth = 4
	}
	if cfg.CtrlSeqNumWidth == 0 {
		cfg.CtrlSeqNumWidth = 4
	}
	if cfg.RateWidth == 0 {
		cfg.RateWidth = 4
	}
	if cfg.FrameWidth == 0 {
		cfg.FrameWidth = 2
	}
	if cfg.MaxPDUSize == 0 {
		cfg.MaxPDUSize = 1500 * bytesize.B
	}
	if cfg.MaxSDUSize == 0 {
		cfg.MaxSDUSize = 1460 * bytesize.B
	}
	if cfg.MaxPDULifeMs == 0 {
		cfg.MaxPDULifeMs = 4000
	}
}

// Default returns a fully-populated DataTransferConstants suitable for
// loopback development.
func Default() *DataTransferConstants {
	cfg := &DataTransferConstants{}
	ApplyDefaults(cfg)
	return cfg
}
