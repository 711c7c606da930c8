package sqlinline

const QSelectProviderCredential = `--sql 5b7f2a0e-94c1-4d7e-b3a8-1f6c0d92e4a7
select api_key, properties, updated_at
from provider_credentials
where provider = $1::text
limit 1;
`

const QUpsertProviderCredential = `--sql c1e4d8b3-2a7f-4e95-8d06-7b3f9a5c2e18
insert into provider_credentials (provider, api_key, properties, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now())
on conflict (provider) do update set
    api_key = excluded.api_key,
    properties = excluded.properties,
    updated_at = now();
`
