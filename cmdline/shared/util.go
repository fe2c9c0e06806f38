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
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Linmuge/apkextractor-sub000/config"
)

// InitConfig loads the configuration named by --config, or the default file
// if there is one
func InitConfig() error {
	if CurrentConfig != nil {
		return nil
	}
	usedDefault := false
	if ArgConfig == "" {
		ArgConfig = config.DefaultConfig()
		if ArgConfig == "" {
			CurrentConfig = config.Default()
			return nil
		}
		usedDefault = true
	}
	cfg, err := config.ReadFile(ArgConfig)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && usedDefault {
			CurrentConfig = config.Default()
			return nil
		}
		return err
	}
	CurrentConfig = cfg
	return nil
}

func OpenFile(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

func Fail(err error) error {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(70)
	}
	return err
}
