package export

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"strconv"
	"strings"

	"github.com/Faultbox/relief-forge/pkg/material"
	"github.com/Faultbox/relief-forge/pkg/relief"
)

const (
	usdzAlign       = 64
	usdzPadExtraID  = 0x5052 // private extra field used only as padding
	usdzSceneFile   = "model.usda"
	usdzTextureFile = "textures/texture0.png"
)

// USDZ writes an AR Quick Look compatible package: an uncompressed zip
// whose entries start on 64-byte boundaries, holding a USDA scene (Y up,
// millimeters) and the slot 0 texture when there is one. Only the slot 0
// material is bound.
type USDZ struct{}

func (USDZ) Name() string      { return "usdz" }
func (USDZ) Extension() string { return "usdz" }
func (USDZ) MediaType() string { return "model/vnd.usdz+zip" }

func (u USDZ) Export(w io.Writer, m *relief.Mesh, opts Options) error {
	pm, err := prepare(m, opts, prepareOptions{yUp: true})
	if err != nil {
		return wrap(u.Name(), err)
	}

	mat := opts.materials()[relief.SlotTop]
	var texture []byte
	if img, ok := material.Texture(mat); ok && pm.UVs != nil {
		// USD texture coordinates start at the bottom-left, like ours.
		if texture, err = encodePNG(img); err != nil {
			return wrap(u.Name(), fmt.Errorf("encode texture: %w", err))
		}
	}

	var scene bytes.Buffer
	if err := writeUSDA(&scene, pm, mat, opts.objectName(), texture != nil); err != nil {
		return wrap(u.Name(), err)
	}

	entries := []usdzEntry{{name: usdzSceneFile, data: scene.Bytes()}}
	if texture != nil {
		entries = append(entries, usdzEntry{name: usdzTextureFile, data: texture})
	}
	return wrap(u.Name(), writeUSDZArchive(w, entries))
}

type usdzEntry struct {
	name string
	data []byte
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeUSDZArchive stores entries uncompressed, padding each local header
// with an extra field so that file data is 64-byte aligned.
func writeUSDZArchive(w io.Writer, entries []usdzEntry) error {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	for _, e := range entries {
		if err := zw.Flush(); err != nil {
			return err
		}
		const localHeaderLen = 30
		dataStart := cw.n + localHeaderLen + int64(len(e.name))

		hdr := &zip.FileHeader{
			Name:               e.name,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE(e.data),
			CompressedSize64:   uint64(len(e.data)),
			UncompressedSize64: uint64(len(e.data)),
			Extra:              alignmentExtra(dataStart),
		}
		fw, err := zw.CreateRaw(hdr)
		if err != nil {
			return err
		}
		if _, err := fw.Write(e.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// alignmentExtra returns an extra field that moves data starting at
// offset onto the next 64-byte boundary, or nil when already aligned.
func alignmentExtra(offset int64) []byte {
	pad := int((usdzAlign - offset%usdzAlign) % usdzAlign)
	if pad == 0 {
		return nil
	}
	// An extra field needs at least its 4-byte id/size header.
	if pad < 4 {
		pad += usdzAlign
	}
	extra := make([]byte, pad)
	binary.LittleEndian.PutUint16(extra[0:], usdzPadExtraID)
	binary.LittleEndian.PutUint16(extra[2:], uint16(pad-4))
	return extra
}

func writeUSDA(w io.Writer, m *relief.Mesh, mat material.Material, name string, textured bool) error {
	bw := bufio.NewWriter(w)
	prim := usdIdentifier(name)
	matPath := "/Root/Materials/Material0"

	fmt.Fprintf(bw, `#usda 1.0
(
    customLayerData = {
        string creator = "%s"
    }
    defaultPrim = "Root"
    metersPerUnit = 0.001
    upAxis = "Y"
)

def Xform "Root" (
    kind = "component"
)
{
    def Mesh "%s" (
        prepend apiSchemas = ["MaterialBindingAPI"]
    )
    {
`, generator, prim)

	counts := make([]string, m.TriangleCount())
	for i := range counts {
		counts[i] = "3"
	}
	fmt.Fprintf(bw, "        int[] faceVertexCounts = [%s]\n", strings.Join(counts, ", "))
	fmt.Fprintf(bw, "        int[] faceVertexIndices = [%s]\n", joinUints(m.Indices))
	fmt.Fprintf(bw, "        rel material:binding = <%s>\n", matPath)
	fmt.Fprintf(bw, "        normal3f[] normals = [%s] (\n            interpolation = \"vertex\"\n        )\n", joinTuples(m.Normals, 3))
	fmt.Fprintf(bw, "        point3f[] points = [%s]\n", joinTuples(m.Positions, 3))
	if m.UVs != nil {
		fmt.Fprintf(bw, "        texCoord2f[] primvars:st = [%s] (\n            interpolation = \"vertex\"\n        )\n", joinTuples(m.UVs, 2))
	}
	fmt.Fprintf(bw, "        uniform token subdivisionScheme = \"none\"\n    }\n\n")

	surf := mat.Finish()
	c := mat.BaseColor().SRGB()
	fmt.Fprintf(bw, `    def Scope "Materials"
    {
        def Material "Material0"
        {
            token outputs:surface.connect = <%[1]s/PreviewSurface.outputs:surface>

            def Shader "PreviewSurface"
            {
                uniform token info:id = "UsdPreviewSurface"
`, matPath)
	if textured {
		fmt.Fprintf(bw, "                color3f inputs:diffuseColor.connect = <%s/Texture.outputs:rgb>\n", matPath)
	} else {
		fmt.Fprintf(bw, "                color3f inputs:diffuseColor = (%s, %s, %s)\n", usdFloat(c[0]), usdFloat(c[1]), usdFloat(c[2]))
	}
	fmt.Fprintf(bw, `                float inputs:metallic = %s
                float inputs:roughness = %s
                int inputs:useSpecularWorkflow = 0
                token outputs:surface
            }
`, usdFloat(surf.Metalness), usdFloat(surf.Roughness))

	if textured {
		fmt.Fprintf(bw, `
            def Shader "PrimvarReader"
            {
                uniform token info:id = "UsdPrimvarReader_float2"
                string inputs:varname = "st"
                float2 outputs:result
            }

            def Shader "Texture"
            {
                uniform token info:id = "UsdUVTexture"
                asset inputs:file = @%[2]s@
                float4 inputs:scale = (%[3]s, %[4]s, %[5]s, 1)
                float2 inputs:st.connect = <%[1]s/PrimvarReader.outputs:result>
                token inputs:sourceColorSpace = "sRGB"
                token inputs:wrapS = "clamp"
                token inputs:wrapT = "clamp"
                float3 outputs:rgb
            }
`, matPath, usdzTextureFile, usdFloat(c[0]), usdFloat(c[1]), usdFloat(c[2]))
	}
	fmt.Fprint(bw, "        }\n    }\n}\n")

	return bw.Flush()
}

// usdIdentifier makes name a valid prim name.
func usdIdentifier(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return DefaultObjectName
	}
	return b.String()
}

func usdFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func joinUints(vals []uint32) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	return b.String()
}

func joinTuples(vals []float32, size int) string {
	var b strings.Builder
	for i := 0; i+size <= len(vals); i += size {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for k := range size {
			if k > 0 {
				b.WriteString(", ")
			}
			b.WriteString(usdFloat(vals[i+k]))
		}
		b.WriteByte(')')
	}
	return b.String()
}
