package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/projectindex/language"
)

const sampleTypeScript = `import React, { useState } from 'react';
import type { Props } from "./types";
import './styles.css';
const fs = require('fs');

export const API_URL = 'https://example.com';
const MAX_RETRIES = 3;

export interface Config extends Base {
  url: string;
}

export type Handler = (req: Request) => void;

export function fetchData(url: string, retries = 3): Promise<Response> {
  return fetch(url);
}

async function loadUser(id) {
  return id;
}

export const handle = async (event, context) => {
  return event;
};

const double = x => x * 2;

const api = {
  get: function(path) { return path; },
};

export default class UserService extends BaseService {
  constructor(client) {
    super();
    this.client = client;
  }

  async getUser(id: string): Promise<User> {
    if (id) {
      return this.client.get(id);
    }
  }

  static create() {
    return new UserService(null);
  }
}

export { fetchData as fetch, loadUser };
`

func Test_ExtractScript_Imports(t *testing.T) {
	facts, err := Content(context.Background(), "app.ts", language.TypeScript, []byte(sampleTypeScript))
	require.NoError(t, err)

	assert.Equal(t, "typescript", facts.Language)
	assert.Equal(t, []string{
		"import React, { useState } from 'react'",
		"import { Props } from './types'",
		"import './styles.css'",
		"require('fs')",
	}, facts.Imports)
}

func Test_ExtractScript_Functions(t *testing.T) {
	facts, err := Content(context.Background(), "app.ts", language.TypeScript, []byte(sampleTypeScript))
	require.NoError(t, err)

	names := make([]string, 0, len(facts.Functions))
	for _, fn := range facts.Functions {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"fetchData", "loadUser", "handle", "double", "get"}, names)

	fetchData := facts.Functions[0]
	assert.Equal(t, []string{"url", "retries"}, fetchData.Args)
	require.NotNil(t, fetchData.Returns)
	assert.Equal(t, "Promise<Response>", *fetchData.Returns)
	assert.Equal(t, 15, fetchData.Line)

	assert.True(t, facts.Functions[1].Async)
	assert.True(t, facts.Functions[2].Async)
	assert.Equal(t, []string{"event", "context"}, facts.Functions[2].Args)
	assert.Equal(t, []string{"x"}, facts.Functions[3].Args)
}

func Test_ExtractScript_ClassMethodsScopedToBody(t *testing.T) {
	facts, err := Content(context.Background(), "app.ts", language.TypeScript, []byte(sampleTypeScript))
	require.NoError(t, err)

	require.Len(t, facts.Classes, 1)
	class := facts.Classes[0]
	assert.Equal(t, "UserService", class.Name)
	assert.Equal(t, []string{"BaseService"}, class.Bases)

	methods := make([]string, 0, len(class.Methods))
	for _, m := range class.Methods {
		methods = append(methods, m.Name)
	}
	assert.Equal(t, []string{"constructor", "getUser", "create"}, methods)
	assert.Equal(t, []string{"id"}, class.Methods[1].Args)
}

func Test_ExtractScript_TypesAndExports(t *testing.T) {
	facts, err := Content(context.Background(), "app.ts", language.TypeScript, []byte(sampleTypeScript))
	require.NoError(t, err)

	assert.Equal(t, []string{"Config"}, facts.Interfaces)
	assert.Equal(t, []string{"Handler"}, facts.Types)
	assert.Equal(t, []string{"API_URL", "MAX_RETRIES"}, facts.Constants)
	assert.Equal(t, []string{"API_URL", "Config", "Handler", "fetchData", "handle", "UserService", "fetch", "loadUser"}, facts.Exports)
}

func Test_ExtractScript_DuplicateNamesKeepFirst(t *testing.T) {
	src := "export function helper(a) {\n}\n\nfunction helper(b) {\n}\n"
	facts, err := Content(context.Background(), "dup.js", language.JavaScript, []byte(src))
	require.NoError(t, err)

	require.Len(t, facts.Functions, 1)
	assert.Equal(t, 1, facts.Functions[0].Line)
	assert.Equal(t, []string{"a"}, facts.Functions[0].Args)
}

func Test_ExtractScript_UnterminatedClassHasNoMethods(t *testing.T) {
	facts, err := Content(context.Background(), "broken.js", language.JavaScript, []byte("class Broken {\n  run() {\n"))
	require.NoError(t, err)

	require.Len(t, facts.Classes, 1)
	assert.Empty(t, facts.Classes[0].Methods)
}

func Test_ScriptArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "rest"}, scriptArgs("a, b = 2, ...rest"))
	assert.Equal(t, []string{"{ x, y }", "opts"}, scriptArgs("{ x, y }, opts?: Options"))
	assert.Empty(t, scriptArgs(""))
}
