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

package shared

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Linmuge/apkextractor-sub000/config"
)

// FormatValue is a --format flag accepting text, json or yaml
type FormatValue string

var _ pflag.Value = (*FormatValue)(nil)

func (f *FormatValue) String() string { return string(*f) }

func (f *FormatValue) Set(s string) error {
	s = strings.ToLower(s)
	switch s {
	case config.FormatText, config.FormatJSON, config.FormatYAML:
		*f = FormatValue(s)
		return nil
	}
	return fmt.Errorf("expected one of %s, %s, %s", config.FormatText, config.FormatJSON, config.FormatYAML)
}

func (f *FormatValue) Type() string { return "format" }

// Resolve returns the flag value if it was set, otherwise the configured
// format
func (f *FormatValue) Resolve(flags *pflag.FlagSet, name string) string {
	if flags.Changed(name) || CurrentConfig == nil {
		if *f == "" {
			return config.FormatText
		}
		return string(*f)
	}
	return CurrentConfig.Format
}
