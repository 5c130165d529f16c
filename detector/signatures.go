package detector

import "encoding/binary"

// Signature defines one entry of the core magic table
type Signature struct {
	Type   Type
	Offset int64  // Offset from start of input
	Magic  []byte // Magic bytes to match; empty entries always run Refine
	Mask   []byte // Bits of Magic that must match; nil compares every bit

	// Refine inspects the input once Magic matched. A known result replaces
	// Type. An unknown result falls back to Type, or to the next entry when
	// Type is Unknown too.
	Refine func(w *Window) (Type, error)
}

func (s *Signature) match(w *Window) bool {
	switch {
	case len(s.Magic) == 0:
		return true
	case s.Mask != nil:
		return w.HasMask(s.Offset, s.Magic, s.Mask)
	}
	return w.Has(s.Offset, s.Magic)
}

// signatures returns the magic table in priority order. Short or weak
// signatures are checked after the specific ones that share their prefix.
func (c *Core) signatures(zip Detector) []Signature {
	var zipRefine func(w *Window) (Type, error)
	if zip != nil {
		zipRefine = zip.Detect
	}

	return []Signature{
		{Type: Type{"bmp", "image/bmp"}, Magic: []byte("BM")},
		{Type: Type{"ac3", "audio/vnd.dolby.dd-raw"}, Magic: []byte{0x0B, 0x77}},
		{Type: Type{"dmg", "application/x-apple-diskimage"}, Magic: []byte{0x78, 0x01}},
		{Type: Type{"exe", "application/x-msdownload"}, Magic: []byte("MZ")},
		{Type: Type{"ps", "application/postscript"}, Magic: []byte("%!"), Refine: postScriptType},
		{Type: Type{"Z", "application/x-compress"}, Magic: []byte{0x1F, 0xA0}},
		{Type: Type{"Z", "application/x-compress"}, Magic: []byte{0x1F, 0x9D}},
		{Type: Type{"gif", "image/gif"}, Magic: []byte("GIF")},
		{Type: Type{"jpg", "image/jpeg"}, Magic: []byte{0xFF, 0xD8, 0xFF}},
		{Type: Type{"jxr", "image/vnd.ms-photo"}, Magic: []byte{0x49, 0x49, 0xBC}},
		{Type: Type{"gz", "application/gzip"}, Magic: []byte{0x1F, 0x8B, 0x08}},
		{Type: Type{"bz2", "application/x-bzip2"}, Magic: []byte("BZh")},
		{Magic: []byte("ID3"), Refine: c.afterID3},
		{Type: Type{"mpc", "audio/x-musepack"}, Magic: []byte("MP+")},
		{Type: Type{"swf", "application/x-shockwave-flash"}, Magic: []byte("CWS")},
		{Type: Type{"swf", "application/x-shockwave-flash"}, Magic: []byte("FWS")},
		{Type: Type{"flif", "image/flif"}, Magic: []byte("FLIF")},
		{Type: Type{"psd", "image/vnd.adobe.photoshop"}, Magic: []byte("8BPS")},
		{Type: Type{"mpc", "audio/x-musepack"}, Magic: []byte("MPCK")},
		{Type: Type{"aif", "audio/aiff"}, Magic: []byte("FORM")},
		{Type: Type{"icns", "image/icns"}, Magic: []byte("icns")},

		// ZIP based formats are sub-typed by the ZIP detector
		{Type: typeZIP, Magic: []byte{0x50, 0x4B, 0x03, 0x04}, Refine: zipRefine},
		{Type: typeZIP, Magic: []byte{0x50, 0x4B, 0x05, 0x06}, Refine: zipRefine},
		{Type: typeZIP, Magic: []byte{0x50, 0x4B, 0x07, 0x08}},

		{Type: Type{"ogx", "application/ogg"}, Magic: []byte("OggS"), Refine: oggType},

		// ISO base media; almost all of these start with the ftyp box
		{Offset: 4, Magic: []byte("ftyp"), Refine: ftypType},

		{Type: Type{"mid", "audio/midi"}, Magic: []byte("MThd")},
		{Type: Type{"woff", "font/woff"}, Magic: []byte{'w', 'O', 'F', 'F', 0x00, 0x01, 0x00, 0x00}},
		{Type: Type{"woff", "font/woff"}, Magic: []byte("wOFFOTTO")},
		{Type: Type{"woff2", "font/woff2"}, Magic: []byte{'w', 'O', 'F', '2', 0x00, 0x01, 0x00, 0x00}},
		{Type: Type{"woff2", "font/woff2"}, Magic: []byte("wOF2OTTO")},
		{Type: Type{"pcap", "application/vnd.tcpdump.pcap"}, Magic: []byte{0xD4, 0xC3, 0xB2, 0xA1}},
		{Type: Type{"pcap", "application/vnd.tcpdump.pcap"}, Magic: []byte{0xA1, 0xB2, 0xC3, 0xD4}},
		{Type: Type{"dsf", "audio/x-dsf"}, Magic: []byte("DSD ")},
		{Type: Type{"lz", "application/x-lzip"}, Magic: []byte("LZIP")},
		{Type: Type{"flac", "audio/x-flac"}, Magic: []byte("fLaC")},
		{Type: Type{"bpg", "image/bpg"}, Magic: []byte{0x42, 0x50, 0x47, 0xFB}},
		{Type: Type{"wv", "audio/wavpack"}, Magic: []byte("wvpk")},
		{Type: typePDF, Magic: []byte("%PDF"), Refine: illustratorType},
		{Type: Type{"wasm", "application/wasm"}, Magic: []byte{0x00, 0x61, 0x73, 0x6D}},

		// Camera raw formats that share the TIFF byte order mark
		{Type: Type{"orf", "image/x-olympus-orf"}, Magic: []byte{0x49, 0x49, 0x52, 0x4F, 0x08, 0x00, 0x00, 0x00, 0x18}},
		{Type: Type{"rw2", "image/x-panasonic-rw2"}, Magic: []byte{0x49, 0x49, 0x55, 0x00, 0x18, 0x00, 0x00, 0x00, 0x88, 0xE7, 0x74, 0xD8}},
		{Magic: []byte("II"), Refine: tiffType(binary.LittleEndian)},
		{Magic: []byte("MM"), Refine: tiffType(binary.BigEndian)},

		{Type: Type{"ape", "audio/ape"}, Magic: []byte("MAC ")},
		{Magic: []byte{0x1A, 0x45, 0xDF, 0xA3}, Refine: ebmlType},
		{Magic: []byte("RIFF"), Refine: riffType},
		{Type: Type{"sqlite", "application/x-sqlite3"}, Magic: []byte("SQLi")},
		{Type: Type{"nes", "application/x-nintendo-nes-rom"}, Magic: []byte{0x4E, 0x45, 0x53, 0x1A}},
		{Type: Type{"crx", "application/x-google-chrome-extension"}, Magic: []byte("Cr24")},
		{Type: Type{"cab", "application/vnd.ms-cab-compressed"}, Magic: []byte("MSCF")},
		{Type: Type{"cab", "application/vnd.ms-cab-compressed"}, Magic: []byte("ISc(")},
		{Type: Type{"rpm", "application/x-rpm"}, Magic: []byte{0xED, 0xAB, 0xEE, 0xDB}},
		{Type: Type{"eps", "application/eps"}, Magic: []byte{0xC5, 0xD0, 0xD3, 0xC6}},
		{Type: Type{"zst", "application/zstd"}, Magic: []byte{0x28, 0xB5, 0x2F, 0xFD}},
		{Type: Type{"elf", "application/x-elf"}, Magic: []byte{0x7F, 0x45, 0x4C, 0x46}},
		{Type: Type{"otf", "font/otf"}, Magic: []byte{0x4F, 0x54, 0x54, 0x4F, 0x00}},
		{Type: Type{"amr", "audio/amr"}, Magic: []byte("#!AMR")},
		{Type: Type{"rtf", "application/rtf"}, Magic: []byte("{\\rtf")},
		{Type: Type{"flv", "video/x-flv"}, Magic: []byte{0x46, 0x4C, 0x56, 0x01}},
		{Type: Type{"it", "audio/x-it"}, Magic: []byte("IMPM")},
		{Offset: 2, Magic: []byte("-lh"), Refine: lzhType},
		{Offset: 2, Magic: []byte("-lz"), Refine: lzhType},
		{Type: typeMPEG, Magic: []byte{0x00, 0x00, 0x01, 0xBA}, Refine: mpegStreamType},
		{Type: Type{"chm", "application/vnd.ms-htmlhelp"}, Magic: []byte("ITSF")},
		{Type: Type{"xz", "application/x-xz"}, Magic: []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}},
		{Type: typeXML, Magic: []byte("<?xml ")},
		{Type: Type{"7z", "application/x-7z-compressed"}, Magic: []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}},
		{Type: Type{"rar", "application/x-rar-compressed"}, Magic: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}},
		{Type: Type{"rar", "application/x-rar-compressed"}, Magic: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01}},
		{Type: Type{"stl", "model/stl"}, Magic: []byte("solid ")},
		{Type: Type{"blend", "application/x-blender"}, Magic: []byte("BLENDER")},
		{Type: Type{"ar", "application/x-unix-archive"}, Magic: []byte("!<arch>"), Refine: debType},
		{Type: Type{"png", "image/png"}, Magic: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, Refine: pngType},
		{Type: Type{"arrow", "application/x-apache-arrow"}, Magic: []byte{0x41, 0x52, 0x52, 0x4F, 0x57, 0x31, 0x00, 0x00}},
		{Type: Type{"glb", "model/gltf-binary"}, Magic: []byte{0x67, 0x6C, 0x54, 0x46, 0x02, 0x00, 0x00, 0x00}},

		// QuickTime files without an ftyp box
		{Type: typeMOV, Offset: 4, Magic: []byte("free")},
		{Type: typeMOV, Offset: 4, Magic: []byte("mdat")},
		{Type: typeMOV, Offset: 4, Magic: []byte("moov")},
		{Type: typeMOV, Offset: 4, Magic: []byte("wide")},

		{Type: typeXML, Magic: []byte{0xEF, 0xBB, 0xBF, '<', '?', 'x', 'm', 'l'}},
		{Type: Type{"xcf", "image/x-xcf"}, Magic: []byte("gimp xcf ")},
		{Type: Type{"asf", "application/vnd.ms-asf"}, Magic: []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11, 0xA6, 0xD9}, Refine: asfType},
		{Type: Type{"ktx", "image/ktx"}, Magic: []byte{0xAB, 0x4B, 0x54, 0x58, 0x20, 0x31, 0x31, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}},
		{Type: Type{"shp", "application/x-esri-shape"}, Offset: 2, Magic: []byte{0x27, 0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{Magic: []byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, 0x0D, 0x0A, 0x87, 0x0A}, Refine: jpeg2000Type},
		{Type: Type{"jxl", "image/jxl"}, Magic: []byte{0xFF, 0x0A}},
		{Type: Type{"jxl", "image/jxl"}, Magic: []byte{0x00, 0x00, 0x00, 0x0C, 0x4A, 0x58, 0x4C, 0x20, 0x0D, 0x0A, 0x87, 0x0A}},
		{Type: Type{"indd", "application/x-indesign"}, Magic: []byte{0x06, 0x06, 0xED, 0xF5, 0xD8, 0x1D, 0x46, 0xE5, 0xBD, 0x31, 0xEF, 0xE7, 0xFE, 0x74, 0xB7, 0x1D}},
		{Type: typeXML, Magic: []byte{0xFE, 0xFF, 0, '<', 0, '?', 0, 'x', 0, 'm', 0, 'l'}},
		{Type: typeXML, Magic: []byte{0xFF, 0xFE, '<', 0, '?', 0, 'x', 0, 'm', 0, 'l', 0}},

		// Weak signatures
		{Type: typeMPEG, Magic: []byte{0x00, 0x00, 0x01, 0xB3}},
		{Type: Type{"ttf", "font/ttf"}, Magic: []byte{0x00, 0x01, 0x00, 0x00, 0x00}},
		{Type: Type{"ico", "image/x-icon"}, Magic: []byte{0x00, 0x00, 0x01, 0x00}},
		{Type: Type{"cur", "image/x-icon"}, Magic: []byte{0x00, 0x00, 0x02, 0x00}},
		{Type: typeCFB, Magic: cfbMagic},

		// Signatures past the first few bytes
		{Type: Type{"vcf", "text/vcard"}, Magic: []byte("BEGIN:VCARD")},
		{Type: Type{"ics", "text/calendar"}, Magic: []byte("BEGIN:VCALENDAR")},
		{Type: Type{"raf", "image/x-fujifilm-raf"}, Magic: []byte("FUJIFILMCCD-RAW")},
		{Type: Type{"xm", "audio/x-xm"}, Magic: []byte("Extended Module:")},
		{Type: Type{"voc", "audio/x-voc"}, Magic: []byte("Creative Voice File")},
		{Type: Type{"mxf", "application/mxf"}, Magic: []byte{0x06, 0x0E, 0x2B, 0x34, 0x02, 0x05, 0x01, 0x01, 0x0D, 0x01, 0x02, 0x01, 0x01, 0x02}},
		{Type: Type{"s3m", "audio/x-s3m"}, Offset: 44, Magic: []byte("SCRM")},
		{Magic: []byte{0x47}, Refine: transportStreamType(188)},
		{Offset: 4, Magic: []byte{0x47}, Refine: transportStreamType(196)},
		{Type: Type{"mobi", "application/x-mobipocket-ebook"}, Offset: 60, Magic: []byte("BOOKMOBI")},
		{Type: Type{"dcm", "application/dicom"}, Offset: 128, Magic: []byte("DICM")},
		{Type: Type{"lnk", "application/x.ms.shortcut"}, Magic: []byte{0x4C, 0x00, 0x00, 0x00, 0x01, 0x14, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}},
		{Type: Type{"alias", "application/x.apple.alias"}, Magic: []byte{0x62, 0x6F, 0x6F, 0x6B, 0x00, 0x00, 0x00, 0x00, 0x6D, 0x61, 0x72, 0x6B, 0x00, 0x00, 0x00, 0x00}},
		{Type: Type{"skp", "application/vnd.sketchup.skp"}, Magic: []byte{0xFF, 0xFE, 0xFF, 0x0E, 0x53, 0x00, 0x6B, 0x00, 0x65, 0x00, 0x74, 0x00, 0x63, 0x00, 0x68, 0x00, 0x55, 0x00, 0x70, 0x00, 0x20, 0x00, 0x4D, 0x00, 0x6F, 0x00, 0x64, 0x00, 0x65, 0x00, 0x6C, 0x00}},
		{Type: Type{"pgp", "application/pgp-encrypted"}, Magic: []byte("-----BEGIN PGP MESSAGE-----")},

		// Requires a full 512 byte header
		{Type: typeTAR, Offset: 257, Magic: []byte("ustar")},
		{Refine: tarType},

		// MPEG audio frame sync, last because two bytes of 0xFFE are common
		{Magic: []byte{0xFF, 0xE0}, Mask: []byte{0xFF, 0xE0}, Refine: mpegAudioType},
	}
}
