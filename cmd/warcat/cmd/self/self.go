/*
 * Copyright 2025 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package self

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self",
		Short: "Install or uninstall this executable",
	}
	cmd.AddCommand(newInstallCommand())
	cmd.AddCommand(newUninstallCommand())
	return cmd
}

func newInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Copy this executable to the user's bin directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.Executable()
			if err != nil {
				return err
			}
			dest, err := installPath()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			if err := copyFile(src, dest); err != nil {
				return err
			}
			log.Infof("installed %s", dest)
			return nil
		},
	}
}

func newUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove this executable from the user's bin directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := installPath()
			if err != nil {
				return err
			}
			if err := os.Remove(dest); err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("%s is not installed", dest)
				}
				return err
			}
			log.Infof("removed %s", dest)
			return nil
		},
	}
}

func installPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	name := "warcat"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(home, ".local", "bin", name), nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
