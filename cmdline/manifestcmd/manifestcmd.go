/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package manifestcmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Linmuge/apkextractor-sub000/cmdline/shared"
	"github.com/Linmuge/apkextractor-sub000/lib/atomicfile"
	"github.com/Linmuge/apkextractor-sub000/lib/axml"
	"github.com/Linmuge/apkextractor-sub000/lib/magic"
	"github.com/Linmuge/apkextractor-sub000/lib/signjar"
)

var ManifestCmd = &cobra.Command{
	Use:   "manifest FILE",
	Short: "Decode a compiled XML document from an APK or a raw AXML file",
	Args:  cobra.ExactArgs(1),
	RunE:  manifestCmd,
}

var (
	argEntry  string
	argOutput string
	argPath   string
	argAttr   string
)

func init() {
	shared.RootCmd.AddCommand(ManifestCmd)
	ManifestCmd.Flags().StringVar(&argEntry, "entry", "", "Archive entry to decode (default from config, AndroidManifest.xml)")
	ManifestCmd.Flags().StringVarP(&argOutput, "output", "o", "-", "Write the decoded XML to this file")
	ManifestCmd.Flags().StringVar(&argPath, "path", "", "Only print elements matching this element path, e.g. //activity")
	ManifestCmd.Flags().StringVar(&argAttr, "attr", "", "With --path, print the value of this attribute of each match")
}

func manifestCmd(cmd *cobra.Command, args []string) error {
	entry := argEntry
	if entry == "" {
		entry = shared.CurrentConfig.ManifestEntry
	}
	if argAttr != "" && argPath == "" {
		return errors.New("--attr requires --path")
	}
	blob, err := readDocument(args[0], entry)
	if err != nil {
		return shared.Fail(err)
	}
	logger := log.With().Str("file", args[0]).Str("entry", entry).Logger()
	var text string
	if argPath != "" {
		text, err = query(blob, argPath, argAttr, axml.WithLogger(logger))
		if err != nil {
			return shared.Fail(err)
		}
	} else {
		text = axml.Decode(blob, axml.WithLogger(logger))
	}
	return shared.Fail(writeOutput(argOutput, text))
}

// query selects elements of a binary XML document by etree path. Matches are
// printed as indented XML, or just the named attribute when attr is set.
func query(blob []byte, path, attr string, opts ...axml.Option) (string, error) {
	compiled, err := etree.CompilePath(path)
	if err != nil {
		return "", fmt.Errorf("--path: %w", err)
	}
	doc := axml.DecodeTree(blob, opts...)
	var sb strings.Builder
	for _, el := range doc.FindElementsPath(compiled) {
		if attr != "" {
			if a := el.SelectAttr(attr); a != nil {
				sb.WriteString(a.Value)
				sb.WriteString("\n")
			}
			continue
		}
		out := etree.NewDocument()
		out.SetRoot(el.Copy())
		out.Indent(4)
		s, err := out.WriteToString()
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// readDocument returns a raw AXML file, or the named entry of an archive
func readDocument(path, entry string) ([]byte, error) {
	f, err := shared.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fileType, r := magic.DetectReader(f)
	logger := log.With().Str("file", path).Stringer("type", fileType).Logger()
	logger.Debug().Msg("detected input")
	switch fileType {
	case magic.FileTypeAXML:
		blob, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading binary xml: %w", err)
		}
		return blob, nil
	case magic.FileTypeAPK, magic.FileTypeJAR, magic.FileTypeZIP:
	default:
		return nil, fmt.Errorf("%s: unknown filetype", path)
	}
	var archive *signjar.Archive
	if st, err := f.Stat(); err == nil && st.Mode().IsRegular() {
		archive, err = signjar.NewArchive(f, st.Size())
		if err != nil {
			return nil, err
		}
	} else {
		// pipes can't be read at random
		blob, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		archive, err = signjar.NewArchive(bytes.NewReader(blob), int64(len(blob)))
		if err != nil {
			return nil, err
		}
	}
	rc, err := archive.Open(entry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: no entry named %s", path, entry)
		}
		return nil, err
	}
	defer rc.Close()
	blob, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", entry, err)
	}
	logger.Debug().Str("entry", entry).Bool("signed", len(archive.Certificates(entry)) != 0).Msg("read entry")
	return blob, nil
}

func writeOutput(path, text string) error {
	out, err := atomicfile.WriteAny(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.WriteString(out, text); err != nil {
		return err
	}
	return out.Commit()
}
