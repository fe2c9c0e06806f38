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
	_ "crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Linmuge/apkextractor-sub000/cmdline/shared"
	"github.com/Linmuge/apkextractor-sub000/config"
	"github.com/Linmuge/apkextractor-sub000/lib/apksig"
	"github.com/Linmuge/apkextractor-sub000/lib/x509tools"
)

var SignatureCmd = &cobra.Command{
	Use:   "signature APK...",
	Short: "Report the signature schemes and signing certificate of APKs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  signatureCmd,
}

var (
	argFormat      shared.FormatValue
	argFileDigest  bool
	argConcurrency int
	argEntry       string
	argNameStyle   string
)

func init() {
	shared.RootCmd.AddCommand(SignatureCmd)
	SignatureCmd.Flags().Var(&argFormat, "format", "Output format: text, json or yaml")
	SignatureCmd.Flags().BoolVar(&argFileDigest, "file-digest", false, "Include the SHA-256 digest of each file")
	SignatureCmd.Flags().IntVarP(&argConcurrency, "jobs", "j", 0, "Number of files to inspect at once (default from config)")
	SignatureCmd.Flags().StringVar(&argEntry, "entry", "", "Signed entry whose v1 certificate is reported")
	SignatureCmd.Flags().StringVar(&argNameStyle, "name-style", "", "Certificate name format: ldap, openssl or msosco (default from config)")
}

type inspectOptions struct {
	Concurrency   int
	FileDigest    bool
	ManifestEntry string
	NameStyle     x509tools.NameStyle
}

func signatureCmd(cmd *cobra.Command, args []string) error {
	opts := inspectOptions{
		Concurrency:   shared.CurrentConfig.Concurrency,
		FileDigest:    argFileDigest,
		ManifestEntry: shared.CurrentConfig.ManifestEntry,
	}
	if argConcurrency > 0 {
		opts.Concurrency = argConcurrency
	}
	if argEntry != "" {
		opts.ManifestEntry = argEntry
	}
	styleName := shared.CurrentConfig.NameStyle
	if argNameStyle != "" {
		styleName = argNameStyle
	}
	style, err := x509tools.ParseNameStyle(styleName)
	if err != nil {
		return err
	}
	opts.NameStyle = style
	log.Debug().Stringer("name_style", style).Int("jobs", opts.Concurrency).Msg("inspecting apks")
	infos := inspectAll(args, opts)
	if err := writeReport(os.Stdout, argFormat.Resolve(cmd.Flags(), "format"), infos); err != nil {
		return shared.Fail(err)
	}
	for _, info := range infos {
		if !info.Valid {
			return shared.Fail(errors.New("ERROR: 1 or more files could not be inspected"))
		}
	}
	return nil
}

// inspectAll reports on each path concurrently. Results are in the same order
// as paths.
func inspectAll(paths []string, opts inspectOptions) []apksig.Info {
	inspector := &apksig.Inspector{
		Logger:        log.Logger,
		ManifestEntry: opts.ManifestEntry,
		NameStyle:     opts.NameStyle,
	}
	infos := make([]apksig.Info, len(paths))
	var eg errgroup.Group
	if opts.Concurrency > 0 {
		eg.SetLimit(opts.Concurrency)
	}
	for i, path := range paths {
		eg.Go(func() error {
			start := time.Now()
			info := inspector.Inspect(path)
			if opts.FileDigest {
				d, err := digestFile(path)
				if err != nil {
					info.Error = joinError(info.Error, err)
				} else {
					info.FileDigest = d.String()
				}
			}
			log.Debug().Str("apk", path).Bool("valid", info.Valid).Dur("elapsed", time.Since(start)).Msg("inspected")
			infos[i] = info
			return nil
		})
	}
	_ = eg.Wait()
	return infos
}

// digestFile returns the canonical content digest of a file
func digestFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	digester := digest.Canonical.Digester()
	n, err := io.Copy(digester.Hash(), f)
	if err != nil {
		return "", fmt.Errorf("digesting %s: %w", path, err)
	}
	d := digester.Digest()
	log.Debug().Str("apk", path).Int64("size", n).Stringer("digest", d).Msg("digested file")
	return d, nil
}

func joinError(existing string, err error) string {
	if existing == "" {
		return err.Error()
	}
	return existing + "; " + err.Error()
}

func writeReport(w io.Writer, format string, infos []apksig.Info) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatText, "":
		for i, info := range infos {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeText(w, info)
		}
		return nil
	}
	return fmt.Errorf("unsupported format \"%s\"", format)
}

func writeText(w io.Writer, info apksig.Info) {
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
		}
	}
	fmt.Fprintln(w, info.Path)
	var schemes []string
	for _, scheme := range info.Schemes.List() {
		schemes = append(schemes, scheme.DisplayName())
	}
	if len(schemes) == 0 {
		schemes = []string{"none"}
	}
	field("Schemes", strings.Join(schemes, ", "))
	if info.Valid {
		field("Source", info.CertificateSource)
		field("Subject", info.Subject)
		field("Issuer", info.Issuer)
		field("Serial", info.SerialNumber)
		field("Not before", info.NotBefore.UTC().Format(time.RFC3339))
		field("Not after", info.NotAfter.UTC().Format(time.RFC3339))
		field("MD5", info.MD5)
		field("SHA-1", info.SHA1)
		field("SHA-256", info.SHA256)
	}
	field("Digest", info.FileDigest)
	field("Error", info.Error)
}
