// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"fmt"
	"strings"

	"github.com/podenv/podenv/internal/environment"
)

type packageManager struct {
	install string
	update  string
}

var (
	dnf = packageManager{
		install: "dnf install -y %s && dnf clean all",
		update:  "dnf update -y && dnf clean all",
	}
	apt = packageManager{
		install: "apt-get update && apt-get install -y %s && rm -rf /var/lib/apt/lists/*",
		update:  "apt-get update && apt-get upgrade -y && rm -rf /var/lib/apt/lists/*",
	}
)

// managerFor picks the package manager from the image name. Debian based
// images use apt-get, everything else dnf.
func managerFor(image string) packageManager {
	lower := strings.ToLower(image)
	for _, distro := range []string{"debian", "ubuntu"} {
		if strings.Contains(lower, distro) {
			return apt
		}
	}
	return dnf
}

// ContainerFile returns the build recipe of env: the declared one when
// present, otherwise one generated from the base image and packages, or ""
// when the environment declares neither.
func ContainerFile(env environment.Environment) string {
	if env.ContainerFile != "" {
		return env.ContainerFile
	}
	if env.BaseImage == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("FROM " + env.BaseImage + "\n")
	if len(env.Packages) > 0 {
		pm := managerFor(env.BaseImage)
		fmt.Fprintf(&sb, "RUN "+pm.install+"\n", strings.Join(env.Packages, " "))
	}
	return sb.String()
}

// UpdateFile returns the recipe that refreshes the packages of an already
// built image.
func UpdateFile(env environment.Environment, image string) string {
	hint := env.BaseImage
	if hint == "" {
		hint = image
	}
	return "FROM " + image + "\nRUN " + managerFor(hint).update + "\n"
}
