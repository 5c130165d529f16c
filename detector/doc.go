// Package detector identifies file types from their content. It reads a
// bounded prefix of the input, plus a few probes at deeper offsets when the
// input is random-access, and never trusts the file name.
//
// # Quick Start
//
//	t, err := detector.DetectFile(ctx, "/path/to/upload.bin")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(t.Extension, t.MIME) // docx application/vnd.openxmlformats-...
//
// From memory or a stream:
//
//	t, err := detector.DetectBytes(ctx, data)
//	t, err := detector.DetectReader(ctx, os.Stdin)
//
// # Detectors
//
// Detection runs a Chain of Detectors; the first one that reports a type
// wins. The default chain, in order:
//
//   - XML: SVG, RSS, Atom, XHTML, HTML, KML, GPX and generic XML by root element
//   - BMFF: MP4/M4A/MOV/HEIF/AVIF/3GP by ftyp brands and track handlers
//   - CFBF: DOC/XLS/PPT/VSD/MSG/MSI from compound file directory entries
//   - PDF: PDF and Illustrator files with the header at the start
//   - Core: 150+ magic number signatures; ZIP archives are handed to the ZIP
//     detector which tells OOXML, ODF, EPUB, APK, JAR, XPI and 3MF apart
//   - PDF junk: PDF headers behind up to a KB of leading junk bytes
//
// Extra detectors can be appended:
//
//	t, err := detector.DetectFile(ctx, path, detector.WithDetectors(myDetector))
//
// # Errors
//
// Detectors signal "not my format" by returning Unknown. ErrInsufficientData
// and *MalformedError are also treated as no match. Only *SourceError (the
// input could not be read) and context cancellation abort a detection.
//
// The ISO-BMFF detector is wrapped in Guard: its panics and unexpected errors
// become *FaultError values passed to the optional FaultHandler, and the
// chain moves on.
//
// # Limits
//
// All reads and container walks are bounded by Limits: the buffered prefix
// size, the maximum bytes buffered from a stream, and caps on ZIP entries,
// ISO-BMFF boxes and compound file directory sectors.
package detector
