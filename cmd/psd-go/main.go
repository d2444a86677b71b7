// Command psd-go is a small inspection tool over the decoder: it dumps
// document metadata, extracts text layers, and renders the composite to
// PNG. It only consumes the public API of the psd and render packages.
package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/openpsd/psd-go/psd"
	"github.com/openpsd/psd-go/render"
)

func main() {
	root := &cobra.Command{
		Use:           "psd-go",
		Short:         "Inspect Adobe Photoshop documents",
		Version:       psd.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(infoCommand(), textCommand(), renderCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func openDocument(path string) (*psd.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := psd.NewStream(f)
	if err != nil {
		return nil, err
	}
	doc, err := psd.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.psd>",
		Short: "Dump document metadata and the layer table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openDocument(args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			w, h := doc.Dimensions()
			format := "PSD"
			if doc.IsLarge() {
				format = "PSB"
			}
			fmt.Printf("format:     %s\n", format)
			fmt.Printf("dimensions: %dx%d\n", w, h)
			fmt.Printf("mode:       %v, depth %d, %d channels\n", doc.ColorMode(), doc.Depth(), doc.Channels())
			fmt.Printf("resources:  %d\n", doc.ResourceCount())

			composite, compression := doc.CompositeImage()
			if composite != nil {
				fmt.Printf("composite:  %d bytes (%v)\n", len(composite), compression)
			} else {
				fmt.Println("composite:  absent")
			}

			fmt.Printf("layers:     %d (transparency layer: %v)\n", doc.LayerCount(), doc.HasTransparencyLayer())
			for i := 0; i < doc.LayerCount(); i++ {
				layer, err := doc.Layer(i)
				if err != nil {
					return err
				}
				fmt.Printf("  [%2d] %-12v %q bounds=(%d,%d,%d,%d) channels=%d opacity=%d\n",
					i, layer.Type(), layer.Name,
					layer.Bounds.Top, layer.Bounds.Left, layer.Bounds.Bottom, layer.Bounds.Right,
					len(layer.Channels), layer.Opacity)
			}
			return nil
		},
	}
}

func textCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "text <file.psd>",
		Short: "Extract the content and default style of every text layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openDocument(args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			for i := 0; i < doc.TextLayerCount(); i++ {
				tl, err := doc.TextLayerAt(i)
				if err != nil {
					return err
				}
				fmt.Printf("layer %d:\n", tl.LayerIndex)

				if text, err := doc.TextLayerText(tl.LayerIndex); err == nil {
					fmt.Printf("  text: %q\n", text)
				} else {
					fmt.Printf("  text: unavailable (%v)\n", err)
				}
				if style, err := doc.TextLayerDefaultStyle(tl.LayerIndex); err == nil {
					fmt.Printf("  font: %s %.2fpt color #%02x%02x%02x\n",
						style.FontName, style.Size,
						style.ColorRGBA[0], style.ColorRGBA[1], style.ColorRGBA[2])
				}
			}
			return nil
		},
	}
}

func renderCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render <file.psd>",
		Short: "Render the composite image to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openDocument(args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			required, info, err := render.CompositeRGBA8Ex(doc, nil)
			if err != nil {
				return err
			}
			buf := make([]byte, required)
			if _, _, err := render.CompositeRGBA8Ex(doc, buf); err != nil {
				return err
			}

			w, h := doc.Dimensions()
			img := &image.RGBA{
				Pix:    buf,
				Stride: int(w) * 4,
				Rect:   image.Rect(0, 0, int(w), int(h)),
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := png.Encode(f, img); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%dx%d, source %v depth %d)\n", out, w, h, info.ColorMode, info.Depth)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "composite.png", "output PNG path")
	return cmd
}
