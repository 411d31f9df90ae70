// Package ocr reads a drawn character back with Tesseract.
//
// It is an independent second opinion next to the template ranking: the
// normalized strokes are rasterized, trimmed to their ink, and handed to
// Tesseract (via gosseract/v2) in single-character page segmentation mode.
// Agreement between the two is a useful signal; disagreement usually means
// the drawing is ambiguous or the template store lacks the character.
//
// # Prerequisites
//
// Tesseract must be installed with the language data for the requested
// language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-jpn
//   - macOS: brew install tesseract tesseract-lang
//
// The default language is Japanese ("jpn"). "chi_sim", "chi_tra" and
// "kor" work the same way when installed.
//
// # Error Handling
//
// ReadGlyph returns ErrNoInk when there is nothing to read. Tesseract
// failures are returned wrapped; callers should treat them as "no opinion"
// rather than as a recognition failure. If per-symbol boxes cannot be read
// the text is still returned with an empty Symbols slice.
package ocr
