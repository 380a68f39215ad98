// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/matrixorigin/kvtable/pkg/common/moerr"
	"github.com/matrixorigin/kvtable/pkg/container/hashtable"
)

// interpreter runs line commands against a single table:
//
//	insert <key> <value>
//	get <key>
//	contains <key>
//	remove <key>
//	incr <key> <delta>
//	clear | size | buckets | stats | dump
//
// Blank lines and lines starting with # are skipped. A missing key on
// get is reported in the output, it does not stop the script.
type interpreter struct {
	ht  *hashtable.StringIntHashMap
	out io.Writer
}

func newInterpreter(ht *hashtable.StringIntHashMap, out io.Writer) *interpreter {
	return &interpreter{ht: ht, out: out}
}

func (in *interpreter) run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := in.exec(strings.Fields(line)); err != nil {
			if me, ok := err.(*moerr.Error); ok {
				return me.WithDetail(fmt.Sprintf("line %d", lineNo))
			}
			return err
		}
	}
	return scanner.Err()
}

func (in *interpreter) exec(args []string) error {
	cmd := args[0]
	arity := map[string]int{
		"insert": 3, "get": 2, "contains": 2, "remove": 2, "incr": 3,
		"clear": 1, "size": 1, "buckets": 1, "stats": 1, "dump": 1,
	}
	want, ok := arity[cmd]
	if !ok {
		return moerr.NewInvalidInputNoCtx("unknown command %q", cmd)
	}
	if len(args) != want {
		return moerr.NewInvalidInputNoCtx("%s takes %d arguments, got %d", cmd, want-1, len(args)-1)
	}

	switch cmd {
	case "insert":
		v, err := parseInt(args[2])
		if err != nil {
			return err
		}
		in.ht.Insert(args[1], v)
	case "get":
		v, err := in.ht.Get(args[1])
		if moerr.IsMoErrCode(err, moerr.ErrKeyNotFound) {
			in.printf("%s\n", err.Error())
			return nil
		}
		in.printf("%d\n", v)
	case "contains":
		in.printf("%t\n", in.ht.Contains(args[1]))
	case "remove":
		in.printf("%t\n", in.ht.Remove(args[1]))
	case "incr":
		d, err := parseInt(args[2])
		if err != nil {
			return err
		}
		in.printf("%d\n", in.ht.At(args[1]).Add(d))
	case "clear":
		in.ht.Clear()
	case "size":
		in.printf("%d\n", in.ht.Size())
	case "buckets":
		in.printf("%d\n", in.ht.NumBuckets())
	case "stats":
		s := in.ht.Stats()
		in.printf("size=%d buckets=%d non-empty=%d longest-chain=%d grows=%d\n",
			s.Size, s.Buckets, s.NonEmptyBuckets, s.MaxChainLen, s.Grows)
	case "dump":
		keys := make([]string, 0, in.ht.Size())
		in.ht.Iterate(func(k string, _ int64) bool {
			keys = append(keys, k)
			return true
		})
		slices.Sort(keys)
		for _, k := range keys {
			v, _ := in.ht.Find(k)
			in.printf("%s %d\n", k, v)
		}
	}
	return nil
}

func (in *interpreter) printf(format string, args ...any) {
	fmt.Fprintf(in.out, format, args...)
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, moerr.NewInvalidInputNoCtx("bad integer %q", s)
	}
	return v, nil
}
