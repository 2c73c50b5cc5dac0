/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/


package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"log"
	"os"
	"os/exec"
	"strings"
	"text/template"
	"time"

	"github.com/andreas-jonsson/i8088-core/version"
)

func main() {
	file := flag.String("file", "-", "Save the generated output to file.")
	pkg := flag.String("package", "version", "Package name of the generated output.")
	env := flag.String("variable", "FULL_VERSION", "Environment variable containing the version number.")
	flag.Parse()

	hash, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		log.Print("could not parse Git hash: ", err)
	}

	ver := version.Current
	if s := os.Getenv(*env); s == "" {
		log.Printf("%s is not set. Keeping %s", *env, ver.FullString())
	} else if ver, err = version.Parse(s); err != nil {
		log.Fatal(err)
	}

	const (
		startYear    = 2019
		copyrightFmt = "Copyright (c) %v Andreas T Jonsson"
	)

	copyright := fmt.Sprintf(copyrightFmt, startYear)
	if year := time.Now().Year(); year != startYear {
		copyright = fmt.Sprintf(copyrightFmt, fmt.Sprintf("%d-%d", startYear, year))
	}

	values := map[string]interface{}{
		"hash": strings.TrimSpace(string(hash)),
		"ver":  ver,
		"copy": copyright,
		"pkg":  *pkg,
	}

	var buf bytes.Buffer
	tmpl := template.Must(template.New("version").Parse(content))
	if err := tmpl.Execute(&buf, values); err != nil {
		log.Fatal(err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		log.Fatal(err)
	}

	if *file == "-" {
		os.Stdout.Write(src)
		return
	}
	if err := os.WriteFile(*file, src, 0644); err != nil {
		log.Fatal(err)
	}
}

var content = `/*
{{.copy}}

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package {{.pkg}}

var (
	Current = Version{ {{.ver.Major}}, {{.ver.Minor}}, {{.ver.Patch}}, "{{.ver.Build}}" }
	Copyright = "{{.copy}}"
	Hash = "{{.hash}}"
)
`
