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

package sigcmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Linmuge/apkextractor-sub000/cmdline/shared"
	"github.com/Linmuge/apkextractor-sub000/lib/apksig"
	"github.com/Linmuge/apkextractor-sub000/lib/signjar"
	"github.com/Linmuge/apkextractor-sub000/lib/zipslicer"
)

var BlocksCmd = &cobra.Command{
	Use:   "blocks APK",
	Short: "List the ID-value pairs of an APK Signing Block",
	Args:  cobra.ExactArgs(1),
	RunE:  blocksCmd,
}

func init() {
	shared.RootCmd.AddCommand(BlocksCmd)
}

func blocksCmd(cmd *cobra.Command, args []string) error {
	return shared.Fail(listBlocks(os.Stdout, args[0]))
}

func listBlocks(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	archive, err := signjar.NewArchive(f, st.Size())
	if err != nil {
		return err
	}
	schemes, err := apksig.DetectSchemesPath(path, archive.Names())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Schemes: %s\n", schemesOrNone(schemes))
	cdOffset, err := zipslicer.FindDirectory(f, st.Size())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Central directory at offset %d\n", cdOffset)
	block, err := apksig.LocateSigningBlock(f, st.Size())
	if err != nil {
		return err
	} else if block == nil {
		fmt.Fprintln(w, "No APK Signing Block")
		return nil
	}
	fmt.Fprintf(w, "APK Signing Block at offset %d, size %d\n", block.Offset, block.Size)
	pairs, err := apksig.ReadPairs(f, block)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		name := "unknown"
		if scheme, ok := apksig.SchemeForID(p.ID); ok {
			name = scheme.DisplayName()
		}
		fmt.Fprintf(w, "  0x%08x %10d  %s\n", p.ID, p.ValueLength(), name)
	}
	return nil
}

func schemesOrNone(s apksig.SchemeSet) string {
	if s.Empty() {
		return "none"
	}
	return s.String()
}
