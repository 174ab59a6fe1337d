// Package imaging loads scans and turns them into the inputs of the sheet
// reader.
//
// It covers everything that touches pixels:
//
//   - Loading: ImageCache decodes PNG, JPEG, GIF, BMP and TIFF files and keeps
//     them for repeated use by the MCP server.
//   - Preparation: Prepare converts a scan to grayscale, removes
//     high-frequency noise and binarizes it with an Otsu threshold. Dilate
//     thins dark strokes before bubbles are sampled.
//   - Sampling: DarknessSampler measures the fill ratio of a grid region.
//   - Overlays: Overlay draws the grid, sampling masks and registration
//     corners on a copy of the scan for debugging.
//
// # Coordinate System
//
// Pixel (x, y) has its centre at (x, y) in geometry coordinates, which is
// also how the detection package reports polygon vertices:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Every other function is stateless
// and never mutates its input image, so scans can be processed in parallel.
package imaging
